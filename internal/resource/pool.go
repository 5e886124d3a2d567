package resource

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/towerbuild/internal/metrics"
)

// Kind describes the access contract of a Pool.
type Kind string

const (
	// KindExclusive is a singleton facility with exactly one holder at a time.
	KindExclusive Kind = "exclusive-single"
	// KindExclusivePool is one dedicated unit set apart from a fleet; it is
	// exclusive like KindExclusive but never aliases the fleet it belongs to.
	KindExclusivePool Kind = "exclusive-pool"
	// KindBounded admits up to Capacity holders concurrently.
	KindBounded Kind = "bounded-pool"
)

// Exclusive reports whether the kind requires capacity 1.
func (k Kind) Exclusive() bool {
	return k == KindExclusive || k == KindExclusivePool
}

// ErrClosed is returned by Acquire once the owning Registry has been torn down.
var ErrClosed = ferrors.ResourceError("resource registry closed").Build()

// Pool is bounded admission control with a fixed capacity. Capacity 1
// gives mutual exclusion.
//
// Acquire blocks until a slot is free; Release hands the slot back. The
// number of concurrent holders never exceeds the capacity.
type Pool struct {
	name     string
	kind     Kind
	capacity int
	sem      *semaphore.Weighted
	recorder metrics.Recorder

	inUse  atomic.Int64
	peak   atomic.Int64
	closed atomic.Bool
}

// NewPool validates the kind/capacity pair and builds a Pool.
func NewPool(name string, kind Kind, capacity int, recorder metrics.Recorder) (*Pool, error) {
	switch {
	case kind != KindExclusive && kind != KindExclusivePool && kind != KindBounded:
		return nil, ferrors.ResourceError("unknown resource kind").
			WithContext("resource", name).
			WithContext("kind", string(kind)).
			Build()
	case capacity < 1:
		return nil, ferrors.ResourceError("resource capacity must be at least 1").
			WithContext("resource", name).
			WithContext("capacity", capacity).
			Build()
	case kind.Exclusive() && capacity != 1:
		return nil, ferrors.ResourceError("exclusive resource must have capacity 1").
			WithContext("resource", name).
			WithContext("capacity", capacity).
			Build()
	}
	return &Pool{
		name:     name,
		kind:     kind,
		capacity: capacity,
		sem:      semaphore.NewWeighted(int64(capacity)),
		recorder: metrics.OrNoop(recorder),
	}, nil
}

func (p *Pool) Name() string  { return p.name }
func (p *Pool) Kind() Kind    { return p.kind }
func (p *Pool) Capacity() int { return p.capacity }

// InUse returns the current number of holders.
func (p *Pool) InUse() int { return int(p.inUse.Load()) }

// Peak returns the highest number of simultaneous holders observed.
func (p *Pool) Peak() int { return int(p.peak.Load()) }

// Acquire blocks until the caller is admitted. It fails only when ctx is
// done before admission or the pool has been closed.
func (p *Pool) Acquire(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed.WithContext("resource", p.name)
	}
	start := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryResource, "admission abandoned").
			WithContext("resource", p.name).
			Build()
	}
	if p.closed.Load() {
		p.sem.Release(1)
		return ErrClosed.WithContext("resource", p.name)
	}
	holders := p.inUse.Add(1)
	if holders > int64(p.capacity) {
		panic(fmt.Sprintf("resource %s: %d holders exceed capacity %d", p.name, holders, p.capacity))
	}
	for {
		peak := p.peak.Load()
		if holders <= peak || p.peak.CompareAndSwap(peak, holders) {
			break
		}
	}
	p.recorder.ObserveAcquire(p.name, time.Since(start), int(holders))
	return nil
}

// Release returns one slot. Releasing a pool that has no holder is a
// programming error and panics.
func (p *Pool) Release() {
	// Decrement before handing the slot back so a newly admitted holder
	// never observes a count above capacity.
	holders := p.inUse.Add(-1)
	if holders < 0 {
		p.inUse.Add(1)
		panic(fmt.Sprintf("resource %s: release without acquire", p.name))
	}
	p.sem.Release(1)
	p.recorder.ObserveRelease(p.name, int(holders))
}

// Hold acquires the pool, runs fn and releases the slot even if fn panics.
func (p *Pool) Hold(ctx context.Context, fn func()) error {
	if err := p.Acquire(ctx); err != nil {
		return err
	}
	defer p.Release()
	fn()
	return nil
}

func (p *Pool) String() string {
	return fmt.Sprintf("%s(%s, %d/%d)", p.name, p.kind, p.InUse(), p.capacity)
}
