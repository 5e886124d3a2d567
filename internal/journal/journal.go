// Package journal renders construction events to durable and interactive
// outputs.
//
// A Journal subscribes to the event Bus, moves every delivered event onto an
// unbounded in-memory queue and hands queued events to its sinks on a
// separate goroutine. Emitters therefore never wait on file, terminal or
// network I/O, even when a sink stalls. A sink that fails is logged and
// counted; it never stops the build.
package journal

import (
	"errors"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	"git.home.luguber.info/inful/towerbuild/internal/logfields"
	"git.home.luguber.info/inful/towerbuild/internal/metrics"
)

// DefaultBuffer is the subscription buffer used when none is configured. The
// buffer only smooths hand-off to the queue; it does not bound the backlog.
const DefaultBuffer = 256

// Sink receives events one at a time, in delivery order. Write is never
// called concurrently for the same sink.
type Sink interface {
	Name() string
	Write(events.Event) error
	Close() error
}

// Journal fans events from a Bus out to sinks.
type Journal struct {
	bus      *events.Bus
	sinks    []Sink
	logger   *slog.Logger
	recorder metrics.Recorder
	buffer   int

	startOnce sync.Once
	stopOnce  sync.Once
	unsub     func()
	done      chan struct{}

	qmu     sync.Mutex
	queue   []events.Event
	drained bool
	wake    chan struct{}

	mu       sync.Mutex
	failures map[string]int
}

// Option configures a Journal.
type Option func(*Journal)

func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(j *Journal) { j.recorder = metrics.OrNoop(r) }
}

// WithBuffer sets the subscription buffer size.
func WithBuffer(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.buffer = n
		}
	}
}

func New(bus *events.Bus, sinks []Sink, opts ...Option) *Journal {
	j := &Journal{
		bus:      bus,
		sinks:    sinks,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		buffer:   DefaultBuffer,
		done:     make(chan struct{}),
		wake:     make(chan struct{}, 1),
		failures: make(map[string]int),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start subscribes to the bus and begins dispatching. Events published
// before Start are not seen.
func (j *Journal) Start() {
	j.startOnce.Do(func() {
		ch, unsub := events.Subscribe[events.Event](j.bus, j.buffer)
		j.unsub = unsub
		go j.pump(ch)
		go j.dispatch()
	})
}

// pump moves events from the subscription onto the queue. It never touches
// a sink, so the bus side of the subscription is always drained.
func (j *Journal) pump(ch <-chan events.Event) {
	for evt := range ch {
		j.qmu.Lock()
		j.queue = append(j.queue, evt)
		j.qmu.Unlock()
		j.signal()
	}
	j.qmu.Lock()
	j.drained = true
	j.qmu.Unlock()
	j.signal()
}

func (j *Journal) signal() {
	select {
	case j.wake <- struct{}{}:
	default:
	}
}

// dispatch writes queued events to every sink in order until the
// subscription is closed and the queue is empty.
func (j *Journal) dispatch() {
	defer close(j.done)
	for {
		j.qmu.Lock()
		batch, drained := j.queue, j.drained
		j.queue = nil
		j.qmu.Unlock()

		for _, evt := range batch {
			for _, s := range j.sinks {
				if err := s.Write(evt); err != nil {
					j.fail(s.Name(), evt, err)
				}
			}
		}
		if len(batch) > 0 {
			continue
		}
		if drained {
			return
		}
		<-j.wake
	}
}

func (j *Journal) fail(sink string, evt events.Event, err error) {
	j.mu.Lock()
	j.failures[sink]++
	j.mu.Unlock()
	j.recorder.IncSinkError(sink)
	j.logger.Warn("journal sink write failed",
		logfields.Sink(sink),
		slog.String("kind", string(evt.Kind)),
		logfields.Error(err))
}

// Failures returns how many writes each sink has failed so far.
func (j *Journal) Failures() map[string]int {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make(map[string]int, len(j.failures))
	for k, v := range j.failures {
		out[k] = v
	}
	return out
}

// Close stops accepting events, drains what is already buffered and closes
// every sink. Close errors from the sinks are joined.
func (j *Journal) Close() error {
	var err error
	j.stopOnce.Do(func() {
		// A journal that never started has nothing to drain.
		j.startOnce.Do(func() { close(j.done) })
		if j.unsub != nil {
			j.unsub()
		}
		<-j.done
		errs := make([]error, 0, len(j.sinks))
		for _, s := range j.sinks {
			if cerr := s.Close(); cerr != nil {
				errs = append(errs, cerr)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}
