// ABOUTME: Per-agent wait statistics - how long each round's pair took to acquire.
package agent

import "time"

// Stats holds the wait duration of every completed round.
type Stats struct {
	Waits []time.Duration
}

// Rounds returns the number of recorded rounds.
func (s Stats) Rounds() int {
	return len(s.Waits)
}

// Mean returns the average wait, or zero with no rounds.
func (s Stats) Mean() time.Duration {
	if len(s.Waits) == 0 {
		return 0
	}
	var total time.Duration
	for _, w := range s.Waits {
		total += w
	}
	return total / time.Duration(len(s.Waits))
}

// Max returns the longest wait.
func (s Stats) Max() time.Duration {
	var longest time.Duration
	for _, w := range s.Waits {
		if w > longest {
			longest = w
		}
	}
	return longest
}
