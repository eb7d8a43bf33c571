// ABOUTME: Resource arbitration monitor - owns the shared unit counter and grants units
// ABOUTME: two-phase (first needs >=2 free, second needs >=1) so agents cannot deadlock.
package pool

import (
	"errors"
	"fmt"

	"github.com/2389-research/arbiter/monitor"
)

// MinCapacity is the smallest pool that lets a single agent complete a pair.
const MinCapacity = 2

var (
	ErrCapacity  = errors.New("pool capacity too small")
	ErrAvailable = errors.New("available units out of range")
)

// Op identifies the operation that produced a Snapshot.
type Op string

const (
	OpAcquireFirst  Op = "acquire_first"
	OpAcquireSecond Op = "acquire_second"
	OpReleaseBoth   Op = "release_both"
)

// Snapshot is the pool state right after a mutation.
type Snapshot struct {
	Op        Op
	Available int
	Capacity  int
}

// Observer is called inside the monitor after every mutation.
// It must not call back into the Pool.
type Observer func(Snapshot)

// InvariantError reports a counter outside [0, capacity]. It is raised with
// panic: it means the acquisition protocol itself is broken.
type InvariantError struct {
	Op        Op
	Available int
	Capacity  int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("pool invariant violated after %s: available=%d capacity=%d", e.Op, e.Available, e.Capacity)
}

// Option configures a Pool.
type Option func(*Pool)

// WithObserver registers fn to see every state the pool passes through.
func WithObserver(fn Observer) Option {
	return func(p *Pool) {
		p.observers = append(p.observers, fn)
	}
}

// Pool arbitrates a fixed number of identical units between agents.
type Pool struct {
	mon        *monitor.Monitor
	atLeastOne *monitor.Condition
	atLeastTwo *monitor.Condition

	capacity  int
	available int
	observers []Observer
}

// New creates a pool with every unit available.
func New(capacity int, opts ...Option) (*Pool, error) {
	return NewWithAvailable(capacity, capacity, opts...)
}

// NewWithAvailable creates a pool whose counter starts at available.
func NewWithAvailable(capacity, available int, opts ...Option) (*Pool, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("%w: %d < %d", ErrCapacity, capacity, MinCapacity)
	}
	if available < 0 || available > capacity {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrAvailable, available, capacity)
	}
	p := &Pool{
		mon:        monitor.New("pool"),
		atLeastOne: monitor.NewCondition("at_least_one"),
		atLeastTwo: monitor.NewCondition("at_least_two"),
		capacity:   capacity,
		available:  available,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AcquireFirst takes the first unit of a pair. It only proceeds while at
// least two units are free, so the holder can always complete its pair.
func (p *Pool) AcquireFirst() {
	p.mon.Do(func() {
		for p.available < 2 {
			p.mon.Wait(p.atLeastTwo)
		}
		p.take(OpAcquireFirst)
	})
}

// AcquireSecond takes the second unit of a pair. Callers must already hold
// a unit from AcquireFirst.
func (p *Pool) AcquireSecond() {
	p.mon.Do(func() {
		for p.available < 1 {
			p.mon.Wait(p.atLeastOne)
		}
		p.take(OpAcquireSecond)
	})
}

// ReleaseBoth returns a completed pair.
func (p *Pool) ReleaseBoth() {
	p.mon.Do(func() {
		p.available += 2
		p.check(OpReleaseBoth)
		p.mon.Signal(p.atLeastOne)
		if p.available >= 2 {
			p.mon.Signal(p.atLeastTwo)
		}
	})
}

// Available returns the number of free units.
func (p *Pool) Available() int {
	var n int
	p.mon.Do(func() { n = p.available })
	return n
}

// Capacity returns the total number of units.
func (p *Pool) Capacity() int {
	return p.capacity
}

func (p *Pool) take(op Op) {
	p.available--
	p.check(op)
	if p.available >= 1 {
		p.mon.Signal(p.atLeastOne)
		if p.available >= 2 {
			p.mon.Signal(p.atLeastTwo)
		}
	}
}

func (p *Pool) check(op Op) {
	if p.available < 0 || p.available > p.capacity {
		panic(&InvariantError{Op: op, Available: p.available, Capacity: p.capacity})
	}
	for _, fn := range p.observers {
		fn(Snapshot{Op: op, Available: p.available, Capacity: p.capacity})
	}
}
