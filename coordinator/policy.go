// ABOUTME: Invitation policies - choose the order agents are invited in each round.
// ABOUTME: Random permutation by default, rotating round-robin as the alternative.
package coordinator

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	ErrInvalidOrder  = errors.New("invitation order is not a permutation")
	ErrUnknownPolicy = errors.New("unknown invitation policy")
)

const (
	PolicyRandom     = "random"
	PolicyRoundRobin = "round-robin"
)

// Policy returns the invitation order for a round as a permutation of the
// agent indexes 0..n-1. Rounds are 1-based.
type Policy interface {
	Order(round, n int) []int
}

// RandomPolicy invites agents in a uniformly random order.
type RandomPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPolicy creates a RandomPolicy. A zero seed uses the current time.
func NewRandomPolicy(seed int64) *RandomPolicy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPolicy) Order(round, n int) []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Perm(n)
}

// RoundRobinPolicy invites agents in ID order, starting one later each round.
type RoundRobinPolicy struct{}

func (RoundRobinPolicy) Order(round, n int) []int {
	order := make([]int, n)
	start := (round - 1) % n
	for i := range order {
		order[i] = (start + i) % n
	}
	return order
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string, seed int64) (Policy, error) {
	switch name {
	case PolicyRandom, "":
		return NewRandomPolicy(seed), nil
	case PolicyRoundRobin:
		return RoundRobinPolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// ValidateOrder checks that order invites each of n agents exactly once.
func ValidateOrder(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("%w: %d entries for %d agents", ErrInvalidOrder, len(order), n)
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidOrder, idx)
		}
		if seen[idx] {
			return fmt.Errorf("%w: index %d repeated", ErrInvalidOrder, idx)
		}
		seen[idx] = true
	}
	return nil
}
