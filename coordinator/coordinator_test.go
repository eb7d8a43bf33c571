// ABOUTME: Specs for the round coordinator - exactly-once invitations, round ordering,
// ABOUTME: pacing, and shutdown on bad policies, hook errors and cancellation.
package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/2389-research/arbiter/coordinator"
	"github.com/2389-research/arbiter/events"
	"github.com/2389-research/arbiter/hooks"
)

type cycleCounter struct {
	lock   sync.Mutex
	cycles map[int]int
}

func (c *cycleCounter) add(id int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cycles[id]++
}

func (c *cycleCounter) get(id int) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.cycles[id]
}

// fakeAgents runs minimal agents: wait for invitation, count a cycle, rendezvous.
func fakeAgents(ctx context.Context, gates []*coordinator.Gate, barrier *coordinator.Barrier, rounds int, counter *cycleCounter) <-chan error {
	errs := make(chan error, len(gates))
	for _, g := range gates {
		go func(g *coordinator.Gate) {
			for r := 0; r < rounds; r++ {
				if err := g.Wait(ctx); err != nil {
					errs <- err
					return
				}
				counter.add(g.ID())
				if _, err := barrier.Await(ctx); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(g)
	}
	return errs
}

var _ = Describe("coordinator", func() {
	const agents = 5

	var (
		ctx     context.Context
		cancel  context.CancelFunc
		gates   []*coordinator.Gate
		barrier *coordinator.Barrier
		counter *cycleCounter
		logger  *logrus.Logger
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		gates = coordinator.NewGates(agents)
		barrier = coordinator.NewBarrier(agents + 1)
		counter = &cycleCounter{cycles: map[int]int{}}
		logger, _ = test.NewNullLogger()
	})

	AfterEach(func() {
		cancel()
	})

	It("invites every agent exactly once per round", func() {
		const rounds = 20
		invites := map[string]int{}
		manager := hooks.NewManager()
		manager.OnInvite(func(_ context.Context, e *hooks.InviteEvent) error {
			invites[fmt.Sprintf("%d/%d", e.Round, e.Agent)]++
			return nil
		})
		bus := events.NewBus()
		sub := bus.SubscribeBuffered(agents*rounds + 2*rounds)

		errs := fakeAgents(ctx, gates, barrier, rounds, counter)
		c := coordinator.New(gates, barrier, rounds,
			coordinator.WithHooks(manager),
			coordinator.WithPublisher(bus),
			coordinator.WithPolicy(coordinator.NewRandomPolicy(99)),
			coordinator.WithLogger(logger),
		)
		Expect(c.Run(ctx)).To(Succeed())
		for i := 0; i < agents; i++ {
			Eventually(errs).Should(Receive(BeNil()))
		}

		Expect(c.State()).To(Equal(coordinator.StateDone))
		Expect(c.Round()).To(Equal(rounds))
		Expect(invites).To(HaveLen(agents * rounds))
		for key, n := range invites {
			Expect(n).To(Equal(1), "invitation %s", key)
		}
		for id := 1; id <= agents; id++ {
			Expect(counter.get(id)).To(Equal(rounds))
		}

		bus.Close()
		invited := 0
		for e := range sub {
			if e.Type == events.Invited {
				invited++
			}
		}
		Expect(invited).To(Equal(agents * rounds))
	})

	It("starts a round only after the previous rendezvous", func() {
		const rounds = 10
		var log []string
		manager := hooks.NewManager()
		manager.OnRoundStart(func(_ context.Context, e *hooks.RoundStartEvent) error {
			Expect(e.Order).To(HaveLen(agents))
			log = append(log, fmt.Sprintf("start %d", e.Round))
			return nil
		})
		manager.OnInvite(func(_ context.Context, e *hooks.InviteEvent) error {
			log = append(log, fmt.Sprintf("invite %d", e.Round))
			return nil
		})
		manager.OnRoundEnd(func(_ context.Context, e *hooks.RoundEndEvent) error {
			Expect(e.Error).NotTo(HaveOccurred())
			Expect(e.Generation).To(Equal(e.Round - 1))
			log = append(log, fmt.Sprintf("end %d", e.Round))
			return nil
		})

		fakeAgents(ctx, gates, barrier, rounds, counter)
		c := coordinator.New(gates, barrier, rounds,
			coordinator.WithHooks(manager),
			coordinator.WithPolicy(coordinator.RoundRobinPolicy{}),
			coordinator.WithLogger(logger),
		)
		Expect(c.Run(ctx)).To(Succeed())

		var expected []string
		for r := 1; r <= rounds; r++ {
			expected = append(expected, fmt.Sprintf("start %d", r))
			for i := 0; i < agents; i++ {
				expected = append(expected, fmt.Sprintf("invite %d", r))
			}
			expected = append(expected, fmt.Sprintf("end %d", r))
		}
		Expect(log).To(Equal(expected))
	})

	It("rejects a policy that skips an agent", func() {
		errs := fakeAgents(ctx, gates, barrier, 1, counter)
		c := coordinator.New(gates, barrier, 1,
			coordinator.WithPolicy(skipFirst{}),
			coordinator.WithLogger(logger),
		)
		err := c.Run(ctx)
		Expect(err).To(MatchError(coordinator.ErrInvalidOrder))
		Expect(c.State()).To(Equal(coordinator.StateError))
		Expect(barrier.IsBroken()).To(BeTrue())

		cancel()
		for i := 0; i < agents; i++ {
			Eventually(errs).Should(Receive(HaveOccurred()))
		}
	})

	It("stops when the context is cancelled at the rendezvous", func() {
		c := coordinator.New(gates, barrier, 3, coordinator.WithLogger(logger))
		done := make(chan error, 1)
		go func() { done <- c.Run(ctx) }()

		Eventually(c.State).Should(Equal(coordinator.StateRendezvous))
		cancel()

		var err error
		Eventually(done).Should(Receive(&err))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(c.State()).To(Equal(coordinator.StateError))
	})

	It("stops when a hook fails", func() {
		hookErr := errors.New("refused")
		manager := hooks.NewManager()
		manager.OnRoundStart(func(context.Context, *hooks.RoundStartEvent) error { return hookErr })

		c := coordinator.New(gates, barrier, 1, coordinator.WithHooks(manager), coordinator.WithLogger(logger))
		Expect(c.Run(ctx)).To(MatchError(hookErr))
		Expect(c.State()).To(Equal(coordinator.StateError))
	})

	It("paces invitations through a pacer", func() {
		var times []time.Time
		manager := hooks.NewManager()
		manager.OnInvite(func(context.Context, *hooks.InviteEvent) error {
			times = append(times, time.Now())
			return nil
		})

		fakeAgents(ctx, gates, barrier, 1, counter)
		c := coordinator.New(gates, barrier, 1,
			coordinator.WithHooks(manager),
			coordinator.WithPacer(coordinator.NewPacer(100, 1)),
			coordinator.WithLogger(logger),
		)
		Expect(c.Run(ctx)).To(Succeed())
		Expect(times).To(HaveLen(agents))
		// four refills at 10ms each after the first token
		Expect(times[agents-1].Sub(times[0])).To(BeNumerically(">=", 35*time.Millisecond))
	})

	It("rejects a barrier sized for the wrong party count", func() {
		Expect(func() {
			coordinator.New(gates, coordinator.NewBarrier(agents), 1)
		}).To(PanicWith(ContainSubstring("parties")))
	})
})

type skipFirst struct{}

func (skipFirst) Order(round, n int) []int {
	order := make([]int, 0, n)
	for i := 1; i < n; i++ {
		order = append(order, i)
	}
	return append(order, 1)
}
