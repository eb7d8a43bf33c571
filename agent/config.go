// ABOUTME: Defines Config - the configuration struct for creating agents with their
// ABOUTME: pool, invitation gate, rendezvous barrier and simulated timings.
package agent

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/arbiter/events"
)

// Arbiter grants the two units of a pair. Implemented by *pool.Pool.
type Arbiter interface {
	AcquireFirst()
	AcquireSecond()
	ReleaseBoth()
}

// Invitation blocks until the coordinator invites the agent. Implemented by *coordinator.Gate.
type Invitation interface {
	Wait(ctx context.Context) error
}

// Rendezvous is the end-of-round barrier. Implemented by *coordinator.Barrier.
type Rendezvous interface {
	Await(ctx context.Context) (int, error)
}

// Config holds configuration for creating an Agent.
type Config struct {
	// ID identifies this agent, 1-based.
	ID int

	// Rounds is the number of acquisition cycles to complete.
	Rounds int

	Pool    Arbiter
	Gate    Invitation
	Barrier Rendezvous

	// HoldTime is how long the pair is held once acquired.
	HoldTime time.Duration

	// ThinkTime is how long the agent pauses after releasing.
	ThinkTime time.Duration

	// Jitter adds a random extra of up to this much to each hold and think.
	Jitter time.Duration

	// Seed feeds the jitter source; zero derives one from the clock and ID.
	Seed int64

	// Publisher receives lifecycle events (optional).
	Publisher events.Publisher

	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}
