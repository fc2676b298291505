// Package worker turns catch export messages into rows of the catch log.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fishbox/internal/amqp"
	"fishbox/internal/core"
	applog "fishbox/internal/log"
	"fishbox/internal/ports"
)

const maxBackoff = 30 * time.Second

// CatchReader is the part of the repository the worker needs.
type CatchReader interface {
	Get(ctx context.Context, id string) (core.Catch, error)
}

// ExportConsumer delivers export messages until the connection drops.
type ExportConsumer interface {
	ConsumeExports(ctx context.Context, handler amqp.ExportHandler) error
	Close() error
}

type ExportWorker struct {
	catches  CatchReader
	exporter ports.CatchExporter
	logger   *slog.Logger
}

func NewExportWorker(catches CatchReader, exporter ports.CatchExporter) *ExportWorker {
	return &ExportWorker{
		catches:  catches,
		exporter: exporter,
		logger:   applog.WithComponent(applog.ComponentWorker),
	}
}

// HandleExportMessage loads the catch and appends it to the catch log. A
// catch deleted before the message arrived is skipped; any other failure is
// returned so the message is requeued.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.CatchExportMessage) error {
	w.logger.InfoContext(ctx, "Processing export message",
		applog.FieldCatchID, msg.ID,
		applog.FieldOwnerID, msg.OwnerID)

	c, err := w.catches.Get(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Catch no longer exists, skipping export", applog.FieldCatchID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get catch from storage: %w", err)
	}

	ref, err := w.exporter.Export(ctx, c)
	if err != nil {
		return fmt.Errorf("export catch: %w", err)
	}

	w.logger.InfoContext(ctx, "Catch exported",
		applog.FieldCatchID, c.ID,
		applog.FieldSpecies, c.Species,
		applog.FieldRowRef, ref)
	return nil
}

// Run consumes export messages until ctx is done. When the broker connection
// fails it reconnects with exponential backoff.
func (w *ExportWorker) Run(ctx context.Context, dial func() (ExportConsumer, error)) error {
	attempt := 0
	for {
		consumer, err := dial()
		if err == nil {
			attempt = 0
			err = consumer.ConsumeExports(ctx, w.HandleExportMessage)
			_ = consumer.Close()
		}
		if ctx.Err() != nil {
			return nil
		}

		delay := exponentialBackoff(attempt)
		attempt++
		w.logger.WarnContext(ctx, "AMQP consumer stopped, reconnecting",
			applog.FieldError, err,
			"attempt", attempt,
			"retry_in", delay.String())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// exponentialBackoff doubles from one second and caps at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}
