package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fishbox/internal/amqp"
	"fishbox/internal/core"
	"fishbox/internal/memory"
)

type fakeExporter struct {
	exported []string
	err      error
}

func (e *fakeExporter) Export(_ context.Context, c core.Catch) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.exported = append(e.exported, c.ID)
	return "'2024 Fänge'!A2:I2", nil
}

type failingReader struct{}

func (failingReader) Get(context.Context, string) (core.Catch, error) {
	return core.Catch{}, &core.FetchError{Op: "get catch", Err: errors.New("database is locked")}
}

func TestHandleExportMessage(t *testing.T) {
	store := memory.New()
	store.Seed(core.Catch{ID: "c1", OwnerID: "u1", Species: "Hecht", Length: 60, Date: time.Now()})

	tests := []struct {
		name     string
		reader   CatchReader
		exporter *fakeExporter
		id       string
		wantErr  bool
		wantRows int
	}{
		{"exports existing catch", store, &fakeExporter{}, "c1", false, 1},
		{"deleted catch is skipped", store, &fakeExporter{}, "gone", false, 0},
		{"storage failure is retried", failingReader{}, &fakeExporter{}, "c1", true, 0},
		{"sheets failure is retried", store, &fakeExporter{err: errors.New("quota exceeded")}, "c1", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewExportWorker(tt.reader, tt.exporter)
			err := w.HandleExportMessage(context.Background(), &amqp.CatchExportMessage{ID: tt.id, OwnerID: "u1"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleExportMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tt.exporter.exported) != tt.wantRows {
				t.Errorf("exported %d rows, want %d", len(tt.exporter.exported), tt.wantRows)
			}
		})
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
		{70, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

type stubConsumer struct {
	closed atomic.Int32
	run    func(ctx context.Context, h amqp.ExportHandler) error
}

func (c *stubConsumer) ConsumeExports(ctx context.Context, h amqp.ExportHandler) error {
	return c.run(ctx, h)
}

func (c *stubConsumer) Close() error {
	c.closed.Add(1)
	return nil
}

func TestRunStopsWithContext(t *testing.T) {
	store := memory.New()
	store.Seed(core.Catch{ID: "c1", OwnerID: "u1", Species: "Hecht", Length: 60, Date: time.Now()})
	exporter := &fakeExporter{}
	w := NewExportWorker(store, exporter)

	ctx, cancel := context.WithCancel(context.Background())
	consumer := &stubConsumer{run: func(ctx context.Context, h amqp.ExportHandler) error {
		if err := h(ctx, &amqp.CatchExportMessage{ID: "c1"}); err != nil {
			return err
		}
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}}

	dials := 0
	err := w.Run(ctx, func() (ExportConsumer, error) {
		dials++
		return consumer, nil
	})

	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if dials != 1 || consumer.closed.Load() != 1 {
		t.Errorf("dials=%d closed=%d", dials, consumer.closed.Load())
	}
	if len(exporter.exported) != 1 {
		t.Errorf("expected one export, got %v", exporter.exported)
	}
}

func TestRunReturnsWhenCancelledDuringBackoff(t *testing.T) {
	w := NewExportWorker(memory.New(), &fakeExporter{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() (ExportConsumer, error) {
			return nil, errors.New("connection refused")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
