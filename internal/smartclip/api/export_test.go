package api

import "time"

// SetClock replaces the limiter's time source.
func (r *RateLimiter) SetClock(now func() time.Time) { r.now = now }
