// ABOUTME: Round coordinator for the agent pool - invites every agent exactly once per
// ABOUTME: round in policy order, then rendezvous with them before the next round.
package coordinator

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/arbiter/events"
	"github.com/2389-research/arbiter/fsm"
	"github.com/2389-research/arbiter/hooks"
)

// DefaultRounds is used when no round count is configured.
const DefaultRounds = 3

// State represents the coordinator's position in the round loop.
type State string

const (
	StateIdle       State = "idle"
	StateInviting   State = "inviting"
	StateRunning    State = "running"
	StateRendezvous State = "rendezvous"
	StateDone       State = "done"
	StateError      State = "error"
)

var validTransitions = map[State][]State{
	StateIdle:       {StateInviting, StateDone, StateError},
	StateInviting:   {StateRunning, StateError},
	StateRunning:    {StateRendezvous, StateError},
	StateRendezvous: {StateInviting, StateDone, StateError},
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPolicy sets the invitation policy. The default is a time-seeded RandomPolicy.
func WithPolicy(p Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithPublisher sends round and invitation events to p.
func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithHooks dispatches round lifecycle hooks through m.
func WithHooks(m *hooks.Manager) Option {
	return func(c *Coordinator) { c.hooks = m }
}

// WithPacer spaces gate openings with p. The default opens them back to back.
func WithPacer(p *Pacer) Option {
	return func(c *Coordinator) { c.pacer = p }
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Coordinator) { c.log = l }
}

// Coordinator drives the round loop.
type Coordinator struct {
	gates     []*Gate
	barrier   *Barrier
	rounds    int
	policy    Policy
	publisher events.Publisher
	hooks     *hooks.Manager
	pacer     *Pacer
	log       logrus.FieldLogger

	state *fsm.Machine[State]
	round atomic.Int64
}

// New creates a coordinator for the agents behind gates. The barrier must
// count every agent plus the coordinator itself.
func New(gates []*Gate, barrier *Barrier, rounds int, opts ...Option) *Coordinator {
	if len(gates) == 0 {
		panic("arbiter: coordinator needs at least one gate")
	}
	if barrier == nil {
		panic("arbiter: barrier must not be nil")
	}
	if barrier.Parties() != len(gates)+1 {
		panic(fmt.Sprintf("arbiter: barrier has %d parties, want %d", barrier.Parties(), len(gates)+1))
	}
	if rounds < 1 {
		panic("arbiter: rounds must be positive")
	}
	c := &Coordinator{
		gates:   gates,
		barrier: barrier,
		rounds:  rounds,
		state:   fsm.New(StateIdle, validTransitions),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy == nil {
		c.policy = NewRandomPolicy(0)
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	return c
}

// State returns the current state.
func (c *Coordinator) State() State {
	return c.state.Current()
}

// Round returns the current 1-based round, or 0 before the first.
func (c *Coordinator) Round() int {
	return int(c.round.Load())
}

// Rounds returns the configured number of rounds.
func (c *Coordinator) Rounds() int {
	return c.rounds
}

// Run executes every round. It is not safe to call Run more than once.
// On error the barrier is broken so no agent stays parked at the rendezvous.
func (c *Coordinator) Run(ctx context.Context) error {
	n := len(c.gates)
	for r := 1; r <= c.rounds; r++ {
		c.round.Store(int64(r))
		log := c.log.WithField("round", r)

		if err := c.transition(StateInviting); err != nil {
			return c.handleError(err)
		}
		order := c.policy.Order(r, n)
		if err := ValidateOrder(order, n); err != nil {
			return c.handleError(fmt.Errorf("round %d: %w", r, err))
		}
		ids := make([]int, n)
		for i, idx := range order {
			ids[i] = c.gates[idx].ID()
		}
		log.WithField("order", ids).Debug("Starting round")
		c.publish(events.NewRoundEvent(events.RoundStarted, r))
		if err := c.hooks.FireRoundStart(ctx, &hooks.RoundStartEvent{Round: r, Order: ids}); err != nil {
			return c.handleError(err)
		}

		// Agents contend only inside the pool, never for an invitation.
		for pos, idx := range order {
			if err := ctx.Err(); err != nil {
				return c.handleError(err)
			}
			if c.pacer != nil {
				if err := c.pacer.Take(ctx); err != nil {
					return c.handleError(err)
				}
			}
			gate := c.gates[idx]
			if err := c.hooks.FireInvite(ctx, &hooks.InviteEvent{Round: r, Agent: gate.ID(), Position: pos}); err != nil {
				return c.handleError(err)
			}
			gate.Open()
			c.publish(events.NewInvitedEvent(gate.ID(), r))
		}

		if err := c.transition(StateRunning); err != nil {
			return c.handleError(err)
		}
		if err := c.transition(StateRendezvous); err != nil {
			return c.handleError(err)
		}
		gen, err := c.barrier.Await(ctx)
		if hookErr := c.hooks.FireRoundEnd(ctx, &hooks.RoundEndEvent{Round: r, Generation: gen, Error: err}); err == nil {
			err = hookErr
		}
		if err != nil {
			return c.handleError(fmt.Errorf("round %d rendezvous: %w", r, err))
		}
		c.publish(events.NewRoundEvent(events.RoundCompleted, r))
		log.Debug("Round complete")
	}

	if err := c.transition(StateDone); err != nil {
		return c.handleError(err)
	}
	return nil
}

func (c *Coordinator) transition(to State) error {
	from, err := c.state.Transition(to)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("Coordinator state change")
	return nil
}

func (c *Coordinator) publish(e events.Event) {
	if c.publisher != nil {
		c.publisher.Publish(e)
	}
}

func (c *Coordinator) handleError(err error) error {
	c.state.Transition(StateError) //nolint:errcheck // best-effort transition to error state
	c.barrier.Break()
	c.log.WithError(err).Warn("Coordinator stopped")
	return err
}
