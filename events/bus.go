// ABOUTME: Implements the event bus - fan-out of events to subscribers without ever
// ABOUTME: blocking the agents and coordinator that publish them.
package events

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the per-subscriber buffer used by Subscribe.
const DefaultBufferSize = 256

// Publisher is the sending side of the event stream.
type Publisher interface {
	Publish(event Event)
}

// Bus manages event distribution to subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	closed      bool
	dropped     atomic.Uint64
}

// NewBus creates a new Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make([]chan Event, 0)}
}

// Subscribe returns a channel that receives events.
func (b *Bus) Subscribe() <-chan Event {
	return b.SubscribeBuffered(DefaultBufferSize)
}

// SubscribeBuffered returns a channel with room for size events.
// Subscribers that need every event must size for the whole run.
func (b *Bus) SubscribeBuffered(size int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, size)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish sends an event to all subscribers.
// Events are sent non-blocking: if a subscriber's channel is full, the event
// is dropped for that subscriber and counted.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close shuts down the bus and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
}
