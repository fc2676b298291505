package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		Component(ComponentCatchStore).
		Operation(OpCreate).
		Catch("c1", "Hecht").
		Err(errors.New("boom")).
		Err(nil)

	want := []any{
		FieldComponent, ComponentCatchStore,
		FieldOperation, OpCreate,
		FieldCatchID, "c1", FieldSpecies, "Hecht",
		FieldError, "boom",
	}
	if len(f) != len(want) {
		t.Fatalf("len = %d, want %d: %v", len(f), len(want), f)
	}
	for i := range want {
		if f[i] != want[i] {
			t.Errorf("field %d = %v, want %v", i, f[i], want[i])
		}
	}
}

func TestContextLogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	base := New(&buf, slog.LevelDebug)

	if FromContext(context.Background()) != base {
		t.Fatalf("expected default logger without context value")
	}

	reqLogger := base.With(FieldRequestID, "req_1")
	ctx := WithLogger(context.Background(), reqLogger)
	FromContext(ctx).Debug("hello")

	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("request id missing from output: %q", buf.String())
	}
}
