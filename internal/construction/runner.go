package construction

import (
	"context"
	"sync"

	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
)

// Runner starts the tasks of one phase and joins them.
type Runner interface {
	// Go starts fn. A Runner that cannot start fn returns an error and
	// does not run it.
	Go(fn func()) error
	// Wait blocks until every started fn has returned, bounded by ctx.
	Wait(ctx context.Context) error
}

// RunnerFactory returns a fresh Runner for a phase.
type RunnerFactory func(phase int) Runner

// NewWorkerGroup is the default RunnerFactory.
func NewWorkerGroup(int) Runner { return &WorkerGroup{} }

// WorkerGroup tracks the goroutines of one phase. Once Wait has been called
// no further work is accepted, so WaitGroup.Add never races with Wait.
type WorkerGroup struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	stopping bool
}

// Go starts a worker if the group is not stopping.
func (g *WorkerGroup) Go(fn func()) error {
	if fn == nil {
		return ferrors.InternalError("nil task function").Build()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopping {
		return ferrors.SpawnError("worker group is stopping").Build()
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
	return nil
}

// Wait prevents new workers from being started and waits for all current
// workers to exit, bounded by ctx.
func (g *WorkerGroup) Wait(ctx context.Context) error {
	g.mu.Lock()
	g.stopping = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
