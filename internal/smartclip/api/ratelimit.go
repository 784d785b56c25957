package api

import (
	"sync"
	"time"
)

const defaultRateLimitWindow = time.Minute

// RateLimiter enforces a per-session sliding-window limit on chat messages.
//
// It keeps the timestamps of each session's messages inside the window and
// prunes stale entries on every Allow call, so memory stays bounded to
// O(limit) entries per active session. It is safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counters map[string][]time.Time
	now      func() time.Time
}

// NewRateLimiter returns a limiter allowing at most limit messages per
// session within window. A limit <= 0 returns nil, which allows everything.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether the session may send another message and records
// it when so.
func (r *RateLimiter) Allow(sessionID string) bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	valid := r.prune(sessionID, now)
	if len(valid) >= r.limit {
		r.counters[sessionID] = valid
		return false
	}
	r.counters[sessionID] = append(valid, now)
	return true
}

// Forget drops the history of a session.
func (r *RateLimiter) Forget(sessionID string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.counters, sessionID)
	r.mu.Unlock()
}

// Cleanup drops sessions with no message inside the window and returns how
// many were dropped.
func (r *RateLimiter) Cleanup() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for id := range r.counters {
		if len(r.prune(id, now)) == 0 {
			delete(r.counters, id)
			n++
		}
	}
	return n
}

func (r *RateLimiter) prune(sessionID string, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	existing := r.counters[sessionID]
	valid := existing[:0]
	for _, t := range existing {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}
