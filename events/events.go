// ABOUTME: Defines the observable event stream - one event per agent state transition
// ABOUTME: plus coordinator round events and the wait-time summary.
package events

import (
	"fmt"
	"time"
)

// Type identifies the kind of event.
type Type string

const (
	// Agent lifecycle
	AgentCreated     Type = "agent_created"
	AgentHungry      Type = "agent_hungry"
	AcquiredFirst    Type = "acquired_first"
	AcquiredSecond   Type = "acquired_second"
	Holding          Type = "holding"
	Released         Type = "released"
	Thinking         Type = "thinking"
	ArrivedAtBarrier Type = "arrived_at_barrier"
	BarrierPassed    Type = "barrier_passed"

	// Wait-time reporting
	RoundWaitTime       Type = "round_wait_time"
	FinalMeanWaitTime   Type = "final_mean_wait_time"
	OverallMeanWaitTime Type = "overall_mean_wait_time"

	// Coordinator
	RoundStarted   Type = "round_started"
	Invited        Type = "invited"
	RoundCompleted Type = "round_completed"
)

// Event is a single observation emitted by an agent or the coordinator.
type Event struct {
	Type Type
	Time time.Time

	// Agent is the 1-based agent ID; zero for coordinator and summary events.
	Agent int

	// Round is 1-based; zero when not tied to a round.
	Round int

	// For RoundWaitTime, FinalMeanWaitTime and OverallMeanWaitTime
	Duration time.Duration
}

func (e Event) String() string {
	switch e.Type {
	case RoundWaitTime, FinalMeanWaitTime:
		return fmt.Sprintf("%s agent=%d round=%d wait=%s", e.Type, e.Agent, e.Round, e.Duration)
	case OverallMeanWaitTime:
		return fmt.Sprintf("%s wait=%s", e.Type, e.Duration)
	case RoundStarted, RoundCompleted:
		return fmt.Sprintf("%s round=%d", e.Type, e.Round)
	default:
		return fmt.Sprintf("%s agent=%d round=%d", e.Type, e.Agent, e.Round)
	}
}

// NewAgentEvent creates a lifecycle event for an agent.
func NewAgentEvent(typ Type, agent, round int) Event {
	return Event{Type: typ, Time: time.Now(), Agent: agent, Round: round}
}

// NewRoundWaitEvent reports how long an agent waited for its pair in a round.
func NewRoundWaitEvent(agent, round int, wait time.Duration) Event {
	return Event{Type: RoundWaitTime, Time: time.Now(), Agent: agent, Round: round, Duration: wait}
}

// NewFinalMeanEvent reports an agent's mean wait over all its rounds.
func NewFinalMeanEvent(agent, rounds int, mean time.Duration) Event {
	return Event{Type: FinalMeanWaitTime, Time: time.Now(), Agent: agent, Round: rounds, Duration: mean}
}

// NewOverallMeanEvent reports the mean of all agents' mean waits.
func NewOverallMeanEvent(mean time.Duration) Event {
	return Event{Type: OverallMeanWaitTime, Time: time.Now(), Duration: mean}
}

// NewRoundEvent creates a coordinator round event.
func NewRoundEvent(typ Type, round int) Event {
	return Event{Type: typ, Time: time.Now(), Round: round}
}

// NewInvitedEvent records that the coordinator opened an agent's gate.
func NewInvitedEvent(agent, round int) Event {
	return Event{Type: Invited, Time: time.Now(), Agent: agent, Round: round}
}
