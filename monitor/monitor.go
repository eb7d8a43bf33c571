// ABOUTME: Hoare-style monitor built only from counting semaphores - mutual exclusion
// ABOUTME: plus condition variables with urgent hand-off priority for resuming threads.
package monitor

// Monitor provides mutual exclusion with Hoare condition variables.
//
// Every method except Enter must be called by the goroutine currently inside
// the monitor. Goroutines resuming from Wait, and signalers resuming after a
// hand-off, always take precedence over goroutines blocked in Enter.
type Monitor struct {
	name string

	entry *Semaphore

	// urgent queues signalers that handed occupancy to a waiter.
	urgent      *Semaphore
	urgentCount int
}

// Condition is a condition variable bound to a Monitor.
// Signals are not stored: a Signal with no waiter is lost.
type Condition struct {
	name    string
	sem     *Semaphore
	waiting int
}

// New creates an unoccupied monitor.
func New(name string) *Monitor {
	return &Monitor{
		name:   name,
		entry:  NewSemaphore(1),
		urgent: NewSemaphore(0),
	}
}

// NewCondition creates a condition with no waiters.
func NewCondition(name string) *Condition {
	return &Condition{name: name, sem: NewSemaphore(0)}
}

// Name returns the monitor name.
func (m *Monitor) Name() string {
	return m.name
}

// Enter blocks until the caller is the only goroutine inside the monitor.
func (m *Monitor) Enter() {
	m.entry.Acquire()
}

// Exit leaves the monitor, handing occupancy to an urgent waiter if there is one.
func (m *Monitor) Exit() {
	m.leave()
}

// Do runs fn inside the monitor.
func (m *Monitor) Do(fn func()) {
	m.Enter()
	defer m.Exit()
	fn()
}

// Wait gives up occupancy and blocks until c is signalled. The caller is
// inside the monitor again when Wait returns and must re-check its predicate.
func (m *Monitor) Wait(c *Condition) {
	c.waiting++
	m.leave()
	c.sem.Acquire()
	c.waiting--
}

// Signal wakes one goroutine waiting on c and blocks until occupancy is
// handed back. It does nothing if no goroutine is waiting.
func (m *Monitor) Signal(c *Condition) {
	if c.waiting == 0 {
		return
	}
	m.urgentCount++
	c.sem.Release()
	m.urgent.Acquire()
	m.urgentCount--
}

// Urgent returns the number of signalers waiting to resume.
// Only meaningful from inside the monitor.
func (m *Monitor) Urgent() int {
	return m.urgentCount
}

func (m *Monitor) leave() {
	if m.urgentCount > 0 {
		m.urgent.Release()
		return
	}
	m.entry.Release()
}

// Name returns the condition name.
func (c *Condition) Name() string {
	return c.name
}

// Waiting returns the number of goroutines blocked on c.
// Only meaningful from inside the monitor.
func (c *Condition) Waiting() int {
	return c.waiting
}
