package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithRunID_And_RunIDFromCtx(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ctx := WithRunID(context.Background(), id)

	got, ok := RunIDFromCtx(ctx)
	if !ok {
		t.Fatal("expected ok=true for valid UUID")
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
}

func TestRunIDFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got, ok := RunIDFromCtx(context.Background())
	if ok {
		t.Fatal("expected ok=false for empty context")
	}
	if got != uuid.Nil {
		t.Fatalf("expected uuid.Nil, got %s", got)
	}
}

func TestRunIDFromCtx_NilUUID(t *testing.T) {
	t.Parallel()

	if _, ok := RunIDFromCtx(WithRunID(context.Background(), uuid.Nil)); ok {
		t.Fatal("expected ok=false for nil UUID")
	}
}

func TestNewRun_Distinct(t *testing.T) {
	t.Parallel()

	a, _ := RunIDFromCtx(NewRun(context.Background()))
	b, _ := RunIDFromCtx(NewRun(context.Background()))
	if a == b {
		t.Fatalf("expected distinct run IDs, got %s twice", a)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	if got := RequestIDFromCtx(context.Background()); got != "" {
		t.Fatalf("expected empty request ID, got %q", got)
	}

	ctx := WithRequestID(context.Background(), "req-42")
	if got := RequestIDFromCtx(ctx); got != "req-42" {
		t.Fatalf("expected req-42, got %q", got)
	}
}
