// Package retry runs an operation again with exponential backoff while it
// keeps failing with an error the caller considers transient.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of calls, the first included.
	// Values below 1 mean a single call.
	Attempts int
	// Backoff is the wait after the first failure; it doubles up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Retryable classifies errors. Nil retries every error.
	Retryable func(error) bool
}

// Storage is the policy used for local database writes that hit a lock.
var Storage = Policy{
	Attempts:   5,
	Backoff:    20 * time.Millisecond,
	MaxBackoff: 500 * time.Millisecond,
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent, or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, p Policy, op string, fn func() error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = Storage.Backoff
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = p.Backoff
	}

	wait := p.Backoff
	var err error
	for attempt := 1; ; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return errors.Join(err, cerr)
		}
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt >= p.Attempts {
			return err
		}

		slog.Debug("retry: transient failure", "op", op, "attempt", attempt, "wait", wait, "err", err)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
		wait *= 2
		if wait > p.MaxBackoff {
			wait = p.MaxBackoff
		}
	}
}
