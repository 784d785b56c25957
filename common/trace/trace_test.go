package trace_test

import (
	"context"
	"strings"
	"testing"

	"github.com/Liu-design-beep/smartclip/common/trace"
)

func TestNewID_Format(t *testing.T) {
	id := trace.NewID()
	if !strings.HasPrefix(id, "t_") || len(id) != 34 {
		t.Fatalf("unexpected id %q", id)
	}
	if id == trace.NewID() {
		t.Fatal("two ids should differ")
	}
}

func TestEnsure(t *testing.T) {
	ctx, id := trace.Ensure(context.Background())
	if id == "" || trace.From(ctx) != id {
		t.Fatalf("Ensure did not attach an id: %q / %q", id, trace.From(ctx))
	}
	ctx2, id2 := trace.Ensure(ctx)
	if id2 != id || ctx2 != ctx {
		t.Fatal("Ensure replaced an existing id")
	}
}

func TestFrom_Empty(t *testing.T) {
	if got := trace.From(context.Background()); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
