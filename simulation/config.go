// ABOUTME: Simulation configuration - pool capacity, agent and round counts, timings,
// ABOUTME: and invitation policy, with validation of the supported ranges.
package simulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/2389-research/arbiter/coordinator"
)

const (
	MinCapacity = 5
	MaxCapacity = 10

	DefaultAgents    = 5
	DefaultHoldTime  = 5 * time.Second
	DefaultThinkTime = 2 * time.Second
)

var (
	ErrInvalidCapacity = errors.New("capacity out of range")
	ErrInvalidAgents   = errors.New("agent count must be positive")
	ErrInvalidRounds   = errors.New("round count must be positive")
	ErrInvalidTiming   = errors.New("durations and rates must not be negative")
)

// Config holds simulation configuration.
type Config struct {
	// Capacity is the number of units in the pool, in [MinCapacity, MaxCapacity].
	Capacity int

	// Agents is the number of competing agents.
	Agents int

	// Rounds is how many times each agent is invited.
	Rounds int

	HoldTime  time.Duration
	ThinkTime time.Duration
	Jitter    time.Duration

	// Seed drives invitation order and jitter; zero seeds from the clock.
	Seed int64

	// Policy names the invitation policy: "random" or "round-robin".
	Policy string

	// InviteRate caps invitations per second; zero sends each round's
	// invitations back to back.
	InviteRate float64
}

// DefaultConfig returns five agents sharing five units for three rounds.
func DefaultConfig() Config {
	return Config{
		Capacity:  MinCapacity,
		Agents:    DefaultAgents,
		Rounds:    coordinator.DefaultRounds,
		HoldTime:  DefaultHoldTime,
		ThinkTime: DefaultThinkTime,
		Policy:    coordinator.PolicyRandom,
	}
}

// ValidateCapacity checks a pool size on its own, for interactive input.
func ValidateCapacity(n int) error {
	if n < MinCapacity || n > MaxCapacity {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidCapacity, n, MinCapacity, MaxCapacity)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := ValidateCapacity(c.Capacity); err != nil {
		return err
	}
	if c.Agents < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidAgents, c.Agents)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRounds, c.Rounds)
	}
	if c.HoldTime < 0 || c.ThinkTime < 0 || c.Jitter < 0 || c.InviteRate < 0 {
		return ErrInvalidTiming
	}
	if _, err := coordinator.PolicyByName(c.Policy, c.Seed); err != nil {
		return err
	}
	return nil
}
