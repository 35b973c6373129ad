package server

import (
	"sync"
	"time"
)

// JobRateLimiter restricts how frequently a single client can submit print
// jobs, over a sliding one-minute window.
type JobRateLimiter struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	maxPerMin int
	now       func() time.Time
}

// NewJobRateLimiter creates a limiter allowing maxPerMinute jobs per client.
func NewJobRateLimiter(maxPerMinute int) *JobRateLimiter {
	return &JobRateLimiter{
		attempts:  make(map[string][]time.Time),
		maxPerMin: maxPerMinute,
		now:       time.Now,
	}
}

// Allow returns true if the client has not exceeded the rate limit.
func (rl *JobRateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.recent(client, now)
	if len(recent) >= rl.maxPerMin {
		rl.attempts[client] = recent
		return false
	}
	rl.attempts[client] = append(recent, now)
	rl.prune(now)
	return true
}

// recent must be called with mu held.
func (rl *JobRateLimiter) recent(client string, now time.Time) []time.Time {
	cutoff := now.Add(-time.Minute)
	prev := rl.attempts[client]
	out := make([]time.Time, 0, len(prev)+1)
	for _, t := range prev {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// prune drops clients with no activity inside the window. Must hold mu.
func (rl *JobRateLimiter) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	for k, ts := range rl.attempts {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(rl.attempts, k)
		}
	}
}
