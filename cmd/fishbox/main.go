package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fishbox/internal/amqp"
	"fishbox/internal/cache"
	"fishbox/internal/cli"
	"fishbox/internal/config"
	"fishbox/internal/enrich"
	apphttp "fishbox/internal/http"
	applog "fishbox/internal/log"
	"fishbox/internal/objectstore"
	"fishbox/internal/ports"
	"fishbox/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run serves until a shutdown signal or a listener failure. Deferred cleanup
// always runs before it returns.
func run(logger *slog.Logger, cfg *config.Config) error {
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	store := cli.InitBackend(startCtx, logger, cfg)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	var (
		notifier ports.Notifier = services.NewLogNotifier(logger)
		exports  ports.ExportQueue
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPExportQueue, cfg.AMQPNotifyQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export and notifications", applog.FieldError, err)
		} else {
			defer client.Close()
			notifier, exports = client, client
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"export_queue", cfg.AMQPExportQueue,
				"notify_queue", cfg.AMQPNotifyQueue)
		}
	}

	opts := []services.StoreOption{
		services.WithNotifier(notifier),
		services.WithLogger(logger),
	}
	if exports != nil {
		opts = append(opts, services.WithExportQueue(exports))
	}

	if cfg.MinIOEndpoint != "" {
		photos, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err == nil {
			err = photos.EnsureBucket(startCtx)
		}
		if err != nil {
			logger.Warn("Photo storage unavailable, photos will not be cleaned up", applog.FieldError, err)
		} else {
			opts = append(opts, services.WithPhotoStore(photos))
			logger.Info("Initialized photo storage", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
		}
	}

	enricher := services.NewEnricher(
		enrich.NewGeocodeClient(cfg.GeocodeBaseURL),
		enrich.NewWeatherClient(cfg.WeatherBaseURL),
		cfg.CacheTTL,
		cfg.EnrichTimeout,
	)
	opts = append(opts, services.WithEnricher(enricher))

	bg := services.NewBackground(0)
	sessions := services.NewSessions(store.Repos, bg, opts...)
	social := services.NewSocialService(store.Repos, store.Repos, notifier, bg, cfg.CacheTTL)

	caches := cache.NewManager()
	caches.Register(enricher.Caches()...)
	caches.Register(social.LeaderboardCache())
	caches.StartCleanup(cfg.CacheTTL)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:          sessions,
		Social:            social,
		Ping:              store.Ping,
		SpotPrecision:     cfg.SpotPrecision,
		RequestsPerMinute: cfg.RateLimitPerMinute,
	})

	stop := func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		// Side effects must finish before the deferred AMQP close. Each one
		// is bounded by its own timeout.
		bg.Wait()
	}
	_, done := cli.GracefulShutdown(logger, 30*time.Second, stop)

	logger.Info("Starting fishbox server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		stop(shutdownCtx)
		return err
	}

	<-done
	return nil
}
