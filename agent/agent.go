// ABOUTME: Implements the Agent type - the per-agent lifecycle loop that waits for an
// ABOUTME: invitation, acquires its pair in fixed order, holds, releases and rendezvous.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/arbiter/events"
	"github.com/2389-research/arbiter/fsm"
)

// Agent competes for pairs of pool units, one cycle per round.
type Agent struct {
	config Config
	log    logrus.FieldLogger
	rng    *rand.Rand
	state  *fsm.Machine[State]

	round atomic.Int64
	held  atomic.Int32

	mu    sync.Mutex
	stats Stats
}

// New creates an Agent. Panics if a collaborator is missing.
func New(cfg Config) *Agent {
	if cfg.Pool == nil {
		panic("arbiter: agent pool must not be nil")
	}
	if cfg.Gate == nil {
		panic("arbiter: agent gate must not be nil")
	}
	if cfg.Barrier == nil {
		panic("arbiter: agent barrier must not be nil")
	}
	if cfg.Rounds < 1 {
		panic("arbiter: agent rounds must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano() + int64(cfg.ID)
	}
	return &Agent{
		config: cfg,
		log:    logger.WithField("agent", cfg.ID),
		rng:    rand.New(rand.NewSource(seed)),
		state:  fsm.New(StateWaitingForInvite, validTransitions),
		stats:  Stats{Waits: make([]time.Duration, 0, cfg.Rounds)},
	}
}

// ID returns the agent ID.
func (a *Agent) ID() int {
	return a.config.ID
}

// State returns the current lifecycle state.
func (a *Agent) State() State {
	return a.state.Current()
}

// Round returns the current 1-based round, or 0 before the first invitation.
func (a *Agent) Round() int {
	return int(a.round.Load())
}

// Held returns how many pool units the agent holds right now. It may lag
// the pool: it rises after an acquire returns and drops before release.
func (a *Agent) Held() int {
	return int(a.held.Load())
}

// Stats returns a copy of the wait statistics recorded so far.
func (a *Agent) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{Waits: append([]time.Duration(nil), a.stats.Waits...)}
}

// Run executes every round and returns after the last rendezvous.
// Once both units are held they are always released, even if ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	a.publish(events.AgentCreated)
	a.log.Debug("Agent created")

	for r := 1; r <= a.config.Rounds; r++ {
		if err := a.runRound(ctx, r); err != nil {
			return a.fail(fmt.Errorf("agent %d round %d: %w", a.config.ID, r, err))
		}
		next := StateWaitingForInvite
		if r == a.config.Rounds {
			next = StateDone
		}
		if err := a.transition(next); err != nil {
			return a.fail(err)
		}
	}

	stats := a.Stats()
	mean := stats.Mean()
	a.emit(events.NewFinalMeanEvent(a.config.ID, stats.Rounds(), mean))
	a.log.WithFields(logrus.Fields{"rounds": stats.Rounds(), "mean_wait": mean}).Info("Agent finished")
	return nil
}

func (a *Agent) runRound(ctx context.Context, round int) error {
	if err := a.config.Gate.Wait(ctx); err != nil {
		return err
	}
	a.round.Store(int64(round))

	if err := a.transition(StateHungry); err != nil {
		return err
	}
	a.publish(events.AgentHungry)
	start := time.Now()

	a.config.Pool.AcquireFirst()
	a.held.Add(1)
	a.publish(events.AcquiredFirst)

	a.config.Pool.AcquireSecond()
	a.held.Add(1)
	a.publish(events.AcquiredSecond)

	wait := time.Since(start)
	a.record(wait)

	if err := a.transition(StateHolding); err != nil {
		a.release()
		return err
	}
	a.publish(events.Holding)
	a.emit(events.NewRoundWaitEvent(a.config.ID, round, wait))
	a.log.WithFields(logrus.Fields{"round": round, "wait": wait}).Debug("Holding pair")

	holdErr := a.pause(ctx, a.config.HoldTime)
	a.release()
	if holdErr != nil {
		return holdErr
	}

	if err := a.transition(StateThinking); err != nil {
		return err
	}
	a.publish(events.Thinking)
	if err := a.pause(ctx, a.config.ThinkTime); err != nil {
		return err
	}

	if err := a.transition(StateAtBarrier); err != nil {
		return err
	}
	a.publish(events.ArrivedAtBarrier)
	if _, err := a.config.Barrier.Await(ctx); err != nil {
		return err
	}
	a.publish(events.BarrierPassed)
	return nil
}

func (a *Agent) release() {
	a.held.Add(-2)
	a.config.Pool.ReleaseBoth()
	a.publish(events.Released)
}

func (a *Agent) record(wait time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Waits = append(a.stats.Waits, wait)
}

// pause sleeps for d plus jitter, returning early if ctx is done.
func (a *Agent) pause(ctx context.Context, d time.Duration) error {
	if a.config.Jitter > 0 {
		d += time.Duration(a.rng.Int63n(int64(a.config.Jitter)))
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Agent) transition(to State) error {
	from, err := a.state.Transition(to)
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("Agent state change")
	return nil
}

func (a *Agent) publish(typ events.Type) {
	a.emit(events.NewAgentEvent(typ, a.config.ID, a.Round()))
}

func (a *Agent) emit(e events.Event) {
	if a.config.Publisher != nil {
		a.config.Publisher.Publish(e)
	}
}

func (a *Agent) fail(err error) error {
	a.state.Transition(StateError) //nolint:errcheck // best-effort transition to error state
	a.log.WithError(err).Warn("Agent stopped")
	return err
}
