// ABOUTME: Cyclic rendezvous barrier - releases all parties once the quota arrives,
// ABOUTME: then resets for the next round. Cancellation breaks it for everyone.
package coordinator

import (
	"context"
	"errors"
	"sync"
)

var ErrBrokenBarrier = errors.New("barrier broken")

// Barrier blocks arriving goroutines until parties of them have arrived.
type Barrier struct {
	mu         sync.Mutex
	parties    int
	arrived    int
	generation int
	release    chan struct{}
	broken     bool
}

// NewBarrier creates a barrier for parties arrivals. Panics if parties < 1.
func NewBarrier(parties int) *Barrier {
	if parties < 1 {
		panic("arbiter: barrier needs at least one party")
	}
	return &Barrier{parties: parties, release: make(chan struct{})}
}

// Parties returns the arrival quota.
func (b *Barrier) Parties() int {
	return b.parties
}

// Await arrives at the barrier and blocks until the quota is reached. It
// returns the generation that was released (0 for the first).
//
// If ctx is done before release, the barrier breaks: this and every other
// waiter, present and future, returns an error.
func (b *Barrier) Await(ctx context.Context) (int, error) {
	b.mu.Lock()
	gen := b.generation
	if b.broken {
		b.mu.Unlock()
		return gen, ErrBrokenBarrier
	}
	release := b.release
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.generation++
		close(b.release)
		b.release = make(chan struct{})
		b.mu.Unlock()
		return gen, nil
	}
	b.mu.Unlock()

	select {
	case <-release:
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.generation == gen {
			return gen, ErrBrokenBarrier
		}
		return gen, nil
	case <-ctx.Done():
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.generation != gen {
			// Tripped while we were being cancelled.
			return gen, nil
		}
		b.breakLocked()
		return gen, ctx.Err()
	}
}

// Break releases every waiter with ErrBrokenBarrier.
func (b *Barrier) Break() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.breakLocked()
}

func (b *Barrier) breakLocked() {
	if b.broken {
		return
	}
	b.broken = true
	close(b.release)
}

// Generation returns how many times the barrier has released.
func (b *Barrier) Generation() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// Waiting returns the number of parties currently blocked.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.arrived
}

// IsBroken reports whether the barrier was broken.
func (b *Barrier) IsBroken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.broken
}
