// ABOUTME: Specs for the coordinator building blocks - gates, the cyclic barrier,
// ABOUTME: invitation policies and the invitation pacer.
package coordinator_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/2389-research/arbiter/coordinator"
)

var _ = Describe("gate", func() {
	It("blocks until opened", func() {
		gate := coordinator.NewGate(3)
		Expect(gate.ID()).To(Equal(3))

		passed := make(chan error, 1)
		go func() { passed <- gate.Wait(context.Background()) }()

		Consistently(passed, 50*time.Millisecond).ShouldNot(Receive())
		gate.Open()
		Eventually(passed).Should(Receive(BeNil()))
	})

	It("admits one wait per open", func() {
		gate := coordinator.NewGate(1)
		gate.Open()
		Expect(gate.Wait(context.Background())).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(gate.Wait(ctx)).To(MatchError(context.DeadlineExceeded))
	})

	It("refuses a second pending invitation", func() {
		gate := coordinator.NewGate(2)
		gate.Open()
		Expect(func() { gate.Open() }).To(PanicWith(ContainSubstring("opened twice")))
	})

	It("numbers gates from one", func() {
		gates := coordinator.NewGates(4)
		Expect(gates).To(HaveLen(4))
		Expect(gates[0].ID()).To(Equal(1))
		Expect(gates[3].ID()).To(Equal(4))
	})
})

var _ = Describe("barrier", func() {
	var barrier *coordinator.Barrier

	BeforeEach(func() {
		barrier = coordinator.NewBarrier(3)
	})

	await := func(results chan<- error) {
		go func() {
			_, err := barrier.Await(context.Background())
			results <- err
		}()
	}

	It("releases only when every party has arrived", func() {
		results := make(chan error, 3)
		await(results)
		await(results)

		Eventually(barrier.Waiting).Should(Equal(2))
		Consistently(results, 50*time.Millisecond).ShouldNot(Receive())

		gen, err := barrier.Await(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(gen).To(Equal(0))
		Eventually(results).Should(Receive(BeNil()))
		Eventually(results).Should(Receive(BeNil()))
		Expect(barrier.Generation()).To(Equal(1))
		Expect(barrier.Waiting()).To(Equal(0))
	})

	It("resets for the next generation", func() {
		for round := 0; round < 3; round++ {
			results := make(chan error, 2)
			await(results)
			await(results)
			Eventually(barrier.Waiting).Should(Equal(2))

			gen, err := barrier.Await(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(gen).To(Equal(round))
			Eventually(results).Should(Receive(BeNil()))
			Eventually(results).Should(Receive(BeNil()))
		}
		Expect(barrier.Generation()).To(Equal(3))
	})

	It("breaks for everyone when a waiter is cancelled", func() {
		results := make(chan error, 1)
		await(results)
		Eventually(barrier.Waiting).Should(Equal(1))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := barrier.Await(ctx)
		Expect(err).To(MatchError(context.Canceled))

		Eventually(results).Should(Receive(MatchError(coordinator.ErrBrokenBarrier)))
		Expect(barrier.IsBroken()).To(BeTrue())

		_, err = barrier.Await(context.Background())
		Expect(errors.Is(err, coordinator.ErrBrokenBarrier)).To(BeTrue())
	})

	It("releases waiters on Break", func() {
		results := make(chan error, 2)
		await(results)
		await(results)
		Eventually(barrier.Waiting).Should(Equal(2))

		barrier.Break()
		barrier.Break()
		Eventually(results).Should(Receive(MatchError(coordinator.ErrBrokenBarrier)))
		Eventually(results).Should(Receive(MatchError(coordinator.ErrBrokenBarrier)))
	})

	It("rejects an empty quota", func() {
		Expect(func() { coordinator.NewBarrier(0) }).To(Panic())
	})
})

var _ = Describe("policies", func() {
	It("produces random permutations", func() {
		policy := coordinator.NewRandomPolicy(42)
		for round := 1; round <= 50; round++ {
			order := policy.Order(round, 7)
			Expect(coordinator.ValidateOrder(order, 7)).To(Succeed())
		}
	})

	It("is reproducible for a fixed seed", func() {
		a := coordinator.NewRandomPolicy(7)
		b := coordinator.NewRandomPolicy(7)
		for round := 1; round <= 5; round++ {
			Expect(a.Order(round, 5)).To(Equal(b.Order(round, 5)))
		}
	})

	It("rotates the starting agent in round-robin", func() {
		policy := coordinator.RoundRobinPolicy{}
		Expect(policy.Order(1, 4)).To(Equal([]int{0, 1, 2, 3}))
		Expect(policy.Order(2, 4)).To(Equal([]int{1, 2, 3, 0}))
		Expect(policy.Order(5, 4)).To(Equal([]int{0, 1, 2, 3}))
	})

	It("validates orders", func() {
		Expect(coordinator.ValidateOrder([]int{0, 1}, 3)).To(MatchError(coordinator.ErrInvalidOrder))
		Expect(coordinator.ValidateOrder([]int{0, 0, 1}, 3)).To(MatchError(ContainSubstring("repeated")))
		Expect(coordinator.ValidateOrder([]int{0, 1, 3}, 3)).To(MatchError(ContainSubstring("out of range")))
		Expect(coordinator.ValidateOrder([]int{2, 0, 1}, 3)).To(Succeed())
	})

	It("resolves policy names", func() {
		p, err := coordinator.PolicyByName(coordinator.PolicyRoundRobin, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(coordinator.RoundRobinPolicy{}))

		p, err = coordinator.PolicyByName("", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&coordinator.RandomPolicy{}))

		_, err = coordinator.PolicyByName("lottery", 0)
		Expect(err).To(MatchError(coordinator.ErrUnknownPolicy))
	})
})

var _ = Describe("pacer", func() {
	It("lets a burst through immediately", func() {
		pacer := coordinator.NewPacer(1, 3)
		start := time.Now()
		for i := 0; i < 3; i++ {
			Expect(pacer.Take(context.Background())).To(Succeed())
		}
		Expect(time.Since(start)).To(BeNumerically("<", 100*time.Millisecond))
	})

	It("spaces takes beyond the burst", func() {
		pacer := coordinator.NewPacer(50, 1)
		start := time.Now()
		for i := 0; i < 4; i++ {
			Expect(pacer.Take(context.Background())).To(Succeed())
		}
		// three refills at 20ms each
		Expect(time.Since(start)).To(BeNumerically(">=", 50*time.Millisecond))
	})

	It("gives up when the context ends", func() {
		pacer := coordinator.NewPacer(0.1, 1)
		Expect(pacer.Take(context.Background())).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(pacer.Take(ctx)).To(MatchError(context.DeadlineExceeded))
	})

	It("rejects a bad configuration", func() {
		Expect(func() { coordinator.NewPacer(0, 1) }).To(Panic())
		Expect(func() { coordinator.NewPacer(1, 0) }).To(Panic())
	})
})
