// ABOUTME: Agent lifecycle states and the transitions allowed between them.
// ABOUTME: One loop per round: invite, hungry, holding, thinking, barrier.
package agent

// State represents where an agent is in its round.
type State string

const (
	StateWaitingForInvite State = "waiting_for_invite"
	StateHungry           State = "hungry"
	StateHolding          State = "holding"
	StateThinking         State = "thinking"
	StateAtBarrier        State = "at_barrier"
	StateDone             State = "done"
	StateError            State = "error"
)

var validTransitions = map[State][]State{
	StateWaitingForInvite: {StateHungry, StateError},
	StateHungry:           {StateHolding, StateError},
	StateHolding:          {StateThinking, StateError},
	StateThinking:         {StateAtBarrier, StateError},
	StateAtBarrier:        {StateWaitingForInvite, StateDone, StateError},
}
