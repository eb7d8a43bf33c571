// ABOUTME: Tests for the semaphore-built monitor - exclusion, lost signals, and the
// ABOUTME: urgent hand-off ordering between waiters, signalers and new entrants.
package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	. "gopkg.in/check.v1"
)

type MonitorSuite struct{}

var _ = Suite(&MonitorSuite{})

type stepLog struct {
	mu    sync.Mutex
	steps []string
}

func (l *stepLog) add(step string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, step)
}

func (l *stepLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.steps...)
}

func waitDone(c *C, done <-chan struct{}, n int) {
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			c.Fatalf("only %d of %d goroutines finished", i, n)
		}
	}
}

func (s *MonitorSuite) TestMutualExclusion(c *C) {
	m := New("exclusion")
	var inside, maxInside int32
	counter := 0
	done := make(chan struct{}, 10)

	for g := 0; g < 10; g++ {
		go func() {
			for i := 0; i < 200; i++ {
				m.Do(func() {
					n := atomic.AddInt32(&inside, 1)
					if n > atomic.LoadInt32(&maxInside) {
						atomic.StoreInt32(&maxInside, n)
					}
					counter++
					atomic.AddInt32(&inside, -1)
				})
			}
			done <- struct{}{}
		}()
	}
	waitDone(c, done, 10)

	c.Assert(atomic.LoadInt32(&maxInside), Equals, int32(1))
	c.Assert(counter, Equals, 2000)
}

func (s *MonitorSuite) TestSignalWithoutWaiterIsLost(c *C) {
	m := New("lost")
	cond := NewCondition("cond")

	m.Do(func() { m.Signal(cond) })

	resumed := make(chan struct{})
	go func() {
		m.Enter()
		m.Wait(cond)
		m.Exit()
		close(resumed)
	}()

	select {
	case <-resumed:
		c.Fatal("earlier signal was stored")
	case <-time.After(50 * time.Millisecond):
	}

	m.Do(func() {
		c.Assert(cond.Waiting(), Equals, 1)
		m.Signal(cond)
	})
	select {
	case <-resumed:
	case <-time.After(time.Second):
		c.Fatal("waiter not resumed by signal")
	}
}

func (s *MonitorSuite) TestSignalerResumesBeforeNewEntrant(c *C) {
	m := New("urgent")
	cond := NewCondition("cond")
	log := &stepLog{}
	aInside := make(chan struct{})
	done := make(chan struct{}, 3)

	go func() {
		m.Enter()
		log.add("A enter")
		close(aInside)
		m.Wait(cond)
		log.add("A resumed")
		m.Exit()
		done <- struct{}{}
	}()
	<-aInside

	go func() {
		m.Enter()
		log.add("B enter")
		go func() {
			m.Enter()
			log.add("C enter")
			m.Exit()
			done <- struct{}{}
		}()
		waitUntil(c, func() bool { return m.entry.Waiters() == 1 })
		m.Signal(cond)
		log.add("B resumed")
		m.Exit()
		done <- struct{}{}
	}()

	waitDone(c, done, 3)
	c.Assert(log.list(), DeepEquals, []string{
		"A enter",
		"B enter",
		"A resumed",
		"B resumed",
		"C enter",
	})
}

func (s *MonitorSuite) TestWaitHandsOccupancyToUrgent(c *C) {
	m := New("nested")
	first := NewCondition("first")
	second := NewCondition("second")
	log := &stepLog{}
	aInside := make(chan struct{})
	done := make(chan struct{}, 3)

	go func() {
		m.Enter()
		close(aInside)
		m.Wait(first)
		log.add("A resumed")
		// B is still parked as urgent; waiting again must wake B, not a new entrant.
		m.Wait(second)
		log.add("A resumed again")
		m.Exit()
		done <- struct{}{}
	}()
	<-aInside

	go func() {
		m.Enter()
		go func() {
			m.Enter()
			log.add("C enter")
			m.Signal(second)
			log.add("C resumed")
			m.Exit()
			done <- struct{}{}
		}()
		waitUntil(c, func() bool { return m.entry.Waiters() == 1 })
		m.Signal(first)
		log.add("B resumed")
		c.Check(m.Urgent(), Equals, 0)
		m.Exit()
		done <- struct{}{}
	}()

	waitDone(c, done, 3)
	c.Assert(log.list(), DeepEquals, []string{
		"A resumed",
		"B resumed",
		"C enter",
		"A resumed again",
		"C resumed",
	})
}

func (s *MonitorSuite) TestDoReleasesOnPanic(c *C) {
	m := New("panic")
	c.Assert(func() { m.Do(func() { panic("boom") }) }, PanicMatches, "boom")

	entered := make(chan struct{})
	go func() {
		m.Do(func() {})
		close(entered)
	}()
	select {
	case <-entered:
	case <-time.After(time.Second):
		c.Fatal("monitor left occupied after panic")
	}
}
