package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fishbox/internal/amqp"
	"fishbox/internal/cli"
	applog "fishbox/internal/log"
	gsheet "fishbox/internal/sheets/google"
	"fishbox/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateExporter(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting fishbox-worker")

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	store := cli.InitBackend(ctx, logger, cfg)
	defer store.Close()

	catchLog, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets catch log initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exportWorker := worker.NewExportWorker(store.Repos, catchLog)
	err = exportWorker.Run(ctx, func() (worker.ExportConsumer, error) {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPExportQueue, cfg.AMQPNotifyQueue)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Export worker stopped", applog.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
