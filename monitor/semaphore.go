// ABOUTME: Counting semaphore - the only blocking primitive the monitor is built from.
// ABOUTME: Acquire blocks while the count is zero; Release wakes exactly one waiter.
package monitor

import (
	"container/list"
	"context"
	"sync"
)

// Semaphore is a counting semaphore.
//
// A Release with blocked waiters hands the permit directly to one of them
// instead of incrementing the count, so a newly arriving Acquire can never
// steal a permit that was released for a waiter. Waiters are currently woken
// in arrival order; callers must not depend on that.
type Semaphore struct {
	mu      sync.Mutex
	count   int
	waiters list.List // of chan struct{}
}

// NewSemaphore creates a semaphore holding initial permits.
// Panics if initial is negative.
func NewSemaphore(initial int) *Semaphore {
	if initial < 0 {
		panic("arbiter: semaphore initial value must not be negative")
	}
	return &Semaphore{count: initial}
}

// Acquire blocks until a permit is available and takes it.
func (s *Semaphore) Acquire() {
	_ = s.AcquireContext(context.Background())
}

// AcquireContext is Acquire that gives up when ctx is done.
// A cancelled acquire never consumes a permit.
func (s *Semaphore) AcquireContext(ctx context.Context) error {
	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	elem := s.waiters.PushBack(ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		select {
		case <-ready:
			// Handed a permit while being cancelled; pass it on.
			s.release()
		default:
			s.waiters.Remove(elem)
		}
		return ctx.Err()
	}
}

// TryAcquire takes a permit without blocking. Reports whether it succeeded.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// Release returns a permit, waking one blocked Acquire if there is one.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}

func (s *Semaphore) release() {
	if front := s.waiters.Front(); front != nil {
		s.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	s.count++
}

// Value returns the number of permits currently available.
func (s *Semaphore) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Waiters returns the number of goroutines blocked in Acquire.
func (s *Semaphore) Waiters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}
