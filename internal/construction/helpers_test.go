package construction

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	"git.home.luguber.info/inful/towerbuild/internal/resource"
	"git.home.luguber.info/inful/towerbuild/internal/worktime"
)

func fastTime() worktime.Source {
	return worktime.Fixed{Duration: time.Millisecond}
}

// limitedRunner refuses to start more than limit tasks.
type limitedRunner struct {
	limit   int
	started atomic.Int32
	wg      sync.WaitGroup
}

func (r *limitedRunner) Go(fn func()) error {
	if int(r.started.Load()) >= r.limit {
		return errors.New("out of threads")
	}
	r.started.Add(1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
	return nil
}

func (r *limitedRunner) Wait(context.Context) error {
	r.wg.Wait()
	return nil
}

// panicOnce panics on the first work duration request.
type panicOnce struct {
	worktime.Fixed
	fired atomic.Bool
}

func (p *panicOnce) WorkDuration() time.Duration {
	if p.fired.CompareAndSwap(false, true) {
		panic("scaffolding collapsed")
	}
	return p.Fixed.WorkDuration()
}

func newRegistry(caps resource.Capacities) *resource.Registry {
	reg, err := resource.NewRegistry(caps)
	if err != nil {
		panic(err)
	}
	return reg
}

// phaseEvents returns the task events of phase in emission order.
func phaseEvents(all []events.Event, phase int) []events.Event {
	var out []events.Event
	for _, e := range all {
		if e.Phase == phase && e.Unit > 0 {
			out = append(out, e)
		}
	}
	return out
}

func indexOf(all []events.Event, match func(events.Event) bool) int {
	for i, e := range all {
		if match(e) {
			return i
		}
	}
	return -1
}

func lastIndexOf(all []events.Event, match func(events.Event) bool) int {
	for i := len(all) - 1; i >= 0; i-- {
		if match(all[i]) {
			return i
		}
	}
	return -1
}
