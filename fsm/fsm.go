// ABOUTME: Implements a table-driven state machine - ensures valid state transitions
// ABOUTME: for the coordinator round loop and the agent lifecycle.
package fsm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is wrapped by every rejected Transition.
var ErrInvalidTransition = errors.New("invalid transition")

// Machine manages a current state with validated transitions.
type Machine[S ~string] struct {
	mu          sync.RWMutex
	initial     S
	current     S
	transitions map[S][]S
}

// New creates a Machine in the initial state. transitions maps each state to
// the states reachable from it; a state with no entry is terminal.
func New[S ~string](initial S, transitions map[S][]S) *Machine[S] {
	return &Machine[S]{initial: initial, current: initial, transitions: transitions}
}

// Current returns the current state.
func (m *Machine[S]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state and returns the state it left.
func (m *Machine[S]) Transition(to S) (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.current
	for _, allowed := range m.transitions[from] {
		if allowed == to {
			m.current = to
			return from, nil
		}
	}
	return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// ForceState sets state without validation (testing only).
func (m *Machine[S]) ForceState(state S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = state
}

// IsTerminal returns true if no transition leaves the current state.
func (m *Machine[S]) IsTerminal() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transitions[m.current]) == 0
}

// Reset returns to the initial state.
func (m *Machine[S]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}
