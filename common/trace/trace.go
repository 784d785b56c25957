// Package trace carries a per-request correlation ID through a context so
// that every log line emitted while serving one chat turn can be grouped.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

type ctxKey struct{}

// Header is the HTTP header a client may use to supply its own trace ID.
const Header = "X-Trace-Id"

// NewID returns a fresh trace ID of the form "t_<32 hex>".
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "t_" + strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return "t_" + hex.EncodeToString(b[:])
}

// With returns ctx carrying id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the trace ID in ctx, or "".
func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Ensure returns ctx unchanged if it already carries an ID, otherwise a child
// context with a new one. The ID in effect is returned as well.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := From(ctx); id != "" {
		return ctx, id
	}
	id := NewID()
	return With(ctx, id), id
}
