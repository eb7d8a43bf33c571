// ABOUTME: Token bucket that spaces out gate openings so invitations within a round
// ABOUTME: arrive at a bounded rate instead of all at once.
package coordinator

import (
	"context"
	"sync"
	"time"
)

// minPause bounds how often a blocked Take re-checks the bucket.
const minPause = time.Millisecond

// Pacer releases invitations at rate per second, allowing burst back to back.
type Pacer struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	rate     float64
	lastFill time.Time
}

// NewPacer creates a full bucket. Panics unless rate > 0 and burst >= 1.
func NewPacer(rate float64, burst int) *Pacer {
	if rate <= 0 {
		panic("arbiter: pacer rate must be positive")
	}
	if burst < 1 {
		panic("arbiter: pacer burst must be at least 1")
	}
	return &Pacer{
		tokens:   float64(burst),
		burst:    float64(burst),
		rate:     rate,
		lastFill: time.Now(),
	}
}

// Take blocks until one invitation may go out or ctx is done.
func (p *Pacer) Take(ctx context.Context) error {
	for {
		pause := p.reserve()
		if pause == 0 {
			return nil
		}
		if pause < minPause {
			pause = minPause
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token if one is there, else reports how long until one is.
func (p *Pacer) reserve() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.tokens += now.Sub(p.lastFill).Seconds() * p.rate
	p.lastFill = now
	if p.tokens > p.burst {
		p.tokens = p.burst
	}

	if p.tokens >= 1 {
		p.tokens--
		return 0
	}
	return time.Duration((1 - p.tokens) / p.rate * float64(time.Second))
}
