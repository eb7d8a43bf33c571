// ABOUTME: Private invitation gate - a binary semaphore each agent blocks on until
// ABOUTME: the coordinator invites it for the current round.
package coordinator

import (
	"context"
	"fmt"

	"github.com/2389-research/arbiter/monitor"
)

// Gate is an agent's private invitation gate. It starts closed; each Open
// admits exactly one Wait.
type Gate struct {
	id  int
	sem *monitor.Semaphore
}

// NewGate creates a closed gate for agent id.
func NewGate(id int) *Gate {
	return &Gate{id: id, sem: monitor.NewSemaphore(0)}
}

// NewGates creates closed gates for agents 1..n.
func NewGates(n int) []*Gate {
	gates := make([]*Gate, n)
	for i := range gates {
		gates[i] = NewGate(i + 1)
	}
	return gates
}

// ID returns the agent ID this gate belongs to.
func (g *Gate) ID() int {
	return g.id
}

// Open admits the agent. Panics if the previous invitation was never taken:
// an agent may hold at most one pending invitation.
func (g *Gate) Open() {
	if g.sem.Value() > 0 {
		panic(fmt.Sprintf("arbiter: gate %d opened twice", g.id))
	}
	g.sem.Release()
}

// Wait blocks until the gate is opened or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	return g.sem.AcquireContext(ctx)
}
