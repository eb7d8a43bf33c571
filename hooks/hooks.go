// ABOUTME: Defines the hook system for round lifecycle events in the coordinator.
// ABOUTME: Hooks run synchronously on the coordinator goroutine, so ordering is exact.
package hooks

import (
	"context"
	"sync"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Round lifecycle events
	EventRoundStart EventType = "RoundStart"
	EventRoundEnd   EventType = "RoundEnd"

	// Invite is fired right before an agent's gate is opened
	EventInvite EventType = "Invite"
)

// RoundStartEvent is fired after the invitation order for a round is chosen.
type RoundStartEvent struct {
	Round int
	Order []int // agent IDs in invitation order
}

// InviteEvent is fired once per agent per round.
type InviteEvent struct {
	Round    int
	Agent    int
	Position int // 0-indexed position in the round's invitation order
}

// RoundEndEvent is fired after the round barrier releases.
type RoundEndEvent struct {
	Round      int
	Generation int
	Error      error // non-nil if the rendezvous was abandoned
}

// Hook is the interface for all lifecycle hooks.
type Hook interface {
	// Type returns the event type this hook handles.
	Type() EventType
}

// RoundStartHook handles RoundStart events.
type RoundStartHook func(ctx context.Context, event *RoundStartEvent) error

func (h RoundStartHook) Type() EventType { return EventRoundStart }

// InviteHook handles Invite events.
type InviteHook func(ctx context.Context, event *InviteEvent) error

func (h InviteHook) Type() EventType { return EventInvite }

// RoundEndHook handles RoundEnd events.
type RoundEndHook func(ctx context.Context, event *RoundEndEvent) error

func (h RoundEndHook) Type() EventType { return EventRoundEnd }

// Manager manages hook registration and dispatch.
type Manager struct {
	mu    sync.RWMutex
	hooks map[EventType][]Hook
}

// NewManager creates a new hook manager.
func NewManager() *Manager {
	return &Manager{
		hooks: make(map[EventType][]Hook),
	}
}

// Register adds a hook for its event type.
func (m *Manager) Register(hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[hook.Type()] = append(m.hooks[hook.Type()], hook)
}

// OnRoundStart registers a RoundStart hook.
func (m *Manager) OnRoundStart(fn func(ctx context.Context, event *RoundStartEvent) error) {
	m.Register(RoundStartHook(fn))
}

// OnInvite registers an Invite hook.
func (m *Manager) OnInvite(fn func(ctx context.Context, event *InviteEvent) error) {
	m.Register(InviteHook(fn))
}

// OnRoundEnd registers a RoundEnd hook.
func (m *Manager) OnRoundEnd(fn func(ctx context.Context, event *RoundEndEvent) error) {
	m.Register(RoundEndHook(fn))
}

func (m *Manager) snapshot(typ EventType) []Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	original := m.hooks[typ]
	hooks := make([]Hook, len(original))
	copy(hooks, original)
	return hooks
}

// FireRoundStart dispatches a RoundStart event. The first hook error aborts the round.
func (m *Manager) FireRoundStart(ctx context.Context, event *RoundStartEvent) error {
	if m == nil {
		return nil
	}
	for _, h := range m.snapshot(EventRoundStart) {
		if fn, ok := h.(RoundStartHook); ok {
			if err := fn(ctx, event); err != nil {
				return err
			}
		}
	}
	return nil
}

// FireInvite dispatches an Invite event.
func (m *Manager) FireInvite(ctx context.Context, event *InviteEvent) error {
	if m == nil {
		return nil
	}
	for _, h := range m.snapshot(EventInvite) {
		if fn, ok := h.(InviteHook); ok {
			if err := fn(ctx, event); err != nil {
				return err
			}
		}
	}
	return nil
}

// FireRoundEnd dispatches a RoundEnd event.
func (m *Manager) FireRoundEnd(ctx context.Context, event *RoundEndEvent) error {
	if m == nil {
		return nil
	}
	for _, h := range m.snapshot(EventRoundEnd) {
		if fn, ok := h.(RoundEndHook); ok {
			if err := fn(ctx, event); err != nil {
				return err
			}
		}
	}
	return nil
}
