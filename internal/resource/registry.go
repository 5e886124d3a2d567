// Package resource owns the shared construction facilities that apartment
// tasks contend for.
//
// Every facility is a Pool: bounded admission control with capacity N, where
// N=1 gives mutual exclusion. A Registry groups the four facilities of one
// building site. It performs no logging and knows nothing about floors or
// apartments; it only grants and takes back slots.
package resource

import (
	"git.home.luguber.info/inful/towerbuild/internal/metrics"
)

// Name identifies one of the shared facilities.
type Name string

const (
	Elevator       Name = "elevator"
	SingleCrane    Name = "single_crane"
	MultiCrane     Name = "multi_crane"
	DoorWindowCrew Name = "door_window_crew"
)

// Capacities configures the bounded pools. The elevator and the single
// crane are always exclusive.
type Capacities struct {
	MultiCranes    int
	DoorWindowCrew int
}

// DefaultCapacities returns three multi-cranes and a two-person crew.
func DefaultCapacities() Capacities {
	return Capacities{MultiCranes: 3, DoorWindowCrew: 2}
}

// Usage is a point-in-time view of one pool.
type Usage struct {
	Name     Name
	Kind     Kind
	Capacity int
	InUse    int
	Peak     int
}

// Registry owns the four shared facilities for the lifetime of a run.
type Registry struct {
	elevator    *Pool
	singleCrane *Pool
	multiCranes *Pool
	crew        *Pool
	recorder    metrics.Recorder
}

// Option configures a Registry.
type Option func(*Registry)

// WithRecorder observes every admission and release.
func WithRecorder(r metrics.Recorder) Option {
	return func(reg *Registry) { reg.recorder = r }
}

// NewRegistry creates the four pools. Any pool that cannot be created
// fails the whole registry.
func NewRegistry(caps Capacities, opts ...Option) (*Registry, error) {
	reg := &Registry{recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(reg)
	}

	specs := []struct {
		dst      **Pool
		name     Name
		kind     Kind
		capacity int
	}{
		{&reg.elevator, Elevator, KindExclusive, 1},
		{&reg.singleCrane, SingleCrane, KindExclusivePool, 1},
		{&reg.multiCranes, MultiCrane, KindBounded, caps.MultiCranes},
		{&reg.crew, DoorWindowCrew, KindBounded, caps.DoorWindowCrew},
	}
	for _, s := range specs {
		p, err := NewPool(string(s.name), s.kind, s.capacity, reg.recorder)
		if err != nil {
			return nil, err
		}
		*s.dst = p
	}
	return reg, nil
}

func (r *Registry) Elevator() *Pool       { return r.elevator }
func (r *Registry) SingleCrane() *Pool    { return r.singleCrane }
func (r *Registry) MultiCranes() *Pool    { return r.multiCranes }
func (r *Registry) DoorWindowCrew() *Pool { return r.crew }

// Pools returns the facilities in a stable order.
func (r *Registry) Pools() []*Pool {
	return []*Pool{r.elevator, r.singleCrane, r.multiCranes, r.crew}
}

// Pool looks up a facility by name.
func (r *Registry) Pool(name Name) (*Pool, bool) {
	for _, p := range r.Pools() {
		if p.name == string(name) {
			return p, true
		}
	}
	return nil, false
}

// Idle reports whether no slot of any facility is held.
func (r *Registry) Idle() bool {
	for _, p := range r.Pools() {
		if p.InUse() != 0 {
			return false
		}
	}
	return true
}

// Snapshot returns the current usage of every facility.
func (r *Registry) Snapshot() []Usage {
	pools := r.Pools()
	out := make([]Usage, 0, len(pools))
	for _, p := range pools {
		out = append(out, Usage{
			Name:     Name(p.name),
			Kind:     p.kind,
			Capacity: p.capacity,
			InUse:    p.InUse(),
			Peak:     p.Peak(),
		})
	}
	return out
}

// Close tears the registry down. Later Acquire calls return ErrClosed, as do
// callers still waiting for a slot when it is handed to them. Holders
// already admitted may still Release.
func (r *Registry) Close() {
	for _, p := range r.Pools() {
		p.closed.Store(true)
	}
}
