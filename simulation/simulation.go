// ABOUTME: Wires the pool, coordinator and agents into one run and collects the
// ABOUTME: per-agent and overall mean wait times once every round has completed.
package simulation

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/arbiter/agent"
	"github.com/2389-research/arbiter/coordinator"
	"github.com/2389-research/arbiter/events"
	"github.com/2389-research/arbiter/hooks"
	"github.com/2389-research/arbiter/pool"
)

var ErrAlreadyRun = errors.New("simulation already run")

// Option configures a Simulation.
type Option func(*Simulation)

// WithPublisher sends every agent and coordinator event to p.
func WithPublisher(p events.Publisher) Option {
	return func(s *Simulation) { s.publisher = p }
}

// WithHooks registers round lifecycle hooks.
func WithHooks(m *hooks.Manager) Option {
	return func(s *Simulation) { s.hooks = m }
}

// WithLogger sets the logger shared by the coordinator and agents.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Simulation) { s.log = l }
}

// WithPoolObserver watches every pool state change.
func WithPoolObserver(fn pool.Observer) Option {
	return func(s *Simulation) { s.observers = append(s.observers, fn) }
}

// AgentReport summarizes one agent's rounds.
type AgentReport struct {
	ID    int
	Waits []time.Duration
	Mean  time.Duration
}

// Report is the outcome of a completed run.
type Report struct {
	Rounds      int
	Agents      []AgentReport // ordered by ID
	OverallMean time.Duration
	Elapsed     time.Duration
}

// Simulation owns one pool, its coordinator and its agents.
type Simulation struct {
	config    Config
	publisher events.Publisher
	hooks     *hooks.Manager
	log       logrus.FieldLogger
	observers []pool.Observer

	pool    *pool.Pool
	gates   []*coordinator.Gate
	barrier *coordinator.Barrier
	coord   *coordinator.Coordinator
	agents  []*agent.Agent

	ran atomic.Bool
}

// New validates cfg and builds every component.
func New(cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulation{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}

	poolOpts := make([]pool.Option, 0, len(s.observers))
	for _, fn := range s.observers {
		poolOpts = append(poolOpts, pool.WithObserver(fn))
	}
	p, err := pool.New(cfg.Capacity, poolOpts...)
	if err != nil {
		return nil, err
	}
	policy, err := coordinator.PolicyByName(cfg.Policy, cfg.Seed)
	if err != nil {
		return nil, err
	}

	s.pool = p
	s.gates = coordinator.NewGates(cfg.Agents)
	s.barrier = coordinator.NewBarrier(cfg.Agents + 1)
	coordOpts := []coordinator.Option{
		coordinator.WithPolicy(policy),
		coordinator.WithPublisher(s.publisher),
		coordinator.WithHooks(s.hooks),
		coordinator.WithLogger(s.log),
	}
	if cfg.InviteRate > 0 {
		coordOpts = append(coordOpts, coordinator.WithPacer(coordinator.NewPacer(cfg.InviteRate, 1)))
	}
	s.coord = coordinator.New(s.gates, s.barrier, cfg.Rounds, coordOpts...)

	s.agents = make([]*agent.Agent, cfg.Agents)
	for i, gate := range s.gates {
		var seed int64
		if cfg.Seed != 0 {
			seed = cfg.Seed + int64(gate.ID())
		}
		s.agents[i] = agent.New(agent.Config{
			ID:        gate.ID(),
			Rounds:    cfg.Rounds,
			Pool:      p,
			Gate:      gate,
			Barrier:   s.barrier,
			HoldTime:  cfg.HoldTime,
			ThinkTime: cfg.ThinkTime,
			Jitter:    cfg.Jitter,
			Seed:      seed,
			Publisher: s.publisher,
			Logger:    s.log,
		})
	}
	return s, nil
}

// Config returns the validated configuration.
func (s *Simulation) Config() Config {
	return s.config
}

// Pool returns the shared pool.
func (s *Simulation) Pool() *pool.Pool {
	return s.pool
}

// Coordinator returns the round coordinator.
func (s *Simulation) Coordinator() *coordinator.Coordinator {
	return s.coord
}

// Agents returns the agents ordered by ID.
func (s *Simulation) Agents() []*agent.Agent {
	return append([]*agent.Agent(nil), s.agents...)
}

// Run drives every round to completion. The first failure cancels the
// coordinator and every agent. A Simulation runs at most once.
func (s *Simulation) Run(ctx context.Context) (*Report, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	start := time.Now()
	s.log.WithFields(logrus.Fields{
		"capacity": s.config.Capacity,
		"agents":   s.config.Agents,
		"rounds":   s.config.Rounds,
		"policy":   s.config.Policy,
	}).Info("Starting simulation")

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range s.agents {
		handle := a.RunAsync(gctx)
		g.Go(handle.Wait)
	}
	g.Go(func() error { return s.coord.Run(gctx) })
	if err := g.Wait(); err != nil {
		s.log.WithError(err).Error("Simulation failed")
		return nil, err
	}

	report := s.report(time.Since(start))
	if s.publisher != nil {
		s.publisher.Publish(events.NewOverallMeanEvent(report.OverallMean))
	}
	s.log.WithFields(logrus.Fields{
		"overall_mean_wait": report.OverallMean,
		"elapsed":           report.Elapsed,
	}).Info("Simulation complete")
	return report, nil
}

func (s *Simulation) report(elapsed time.Duration) *Report {
	r := &Report{
		Rounds:  s.config.Rounds,
		Agents:  make([]AgentReport, 0, len(s.agents)),
		Elapsed: elapsed,
	}
	var total time.Duration
	for _, a := range s.agents {
		stats := a.Stats()
		mean := stats.Mean()
		total += mean
		r.Agents = append(r.Agents, AgentReport{ID: a.ID(), Waits: stats.Waits, Mean: mean})
	}
	if len(r.Agents) > 0 {
		r.OverallMean = total / time.Duration(len(r.Agents))
	}
	return r
}
