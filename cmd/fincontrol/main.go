package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fincontrol/internal/aggregate"
	"fincontrol/internal/backend"
	"fincontrol/internal/backup"
	"fincontrol/internal/cache"
	"fincontrol/internal/cli"
	"fincontrol/internal/config"
	apphttp "fincontrol/internal/http"
	"fincontrol/internal/ledger"
	"fincontrol/internal/log"
	"fincontrol/internal/middleware/ratelimit"
	"fincontrol/internal/report"
	"fincontrol/internal/settings"
	"fincontrol/internal/worker"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func main() {
	// Used until the configured logger exists.
	bootLogger := log.New(log.DefaultConfig())

	if err := cli.LoadEnvFile(); err != nil {
		bootLogger.Warn("Failed to load .env file", log.FieldError, err)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		bootLogger.Error("Invalid configuration", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	// Sums go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	if err := run(cfg, logger); err != nil {
		logger.Error("Application stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Application stopped")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	if res.Notifier != nil {
		events := worker.NewEventWorker(worker.PublisherFunc(res.Notifier.Notify), worker.DefaultConfig(), logger)
		ledgerOpts = append(ledgerOpts, ledger.WithNotifier(events))
		g.Go(func() error { return events.Run(gctx) })
	}
	book := ledger.New(res.Store, ledgerOpts...)

	format, err := report.NewFormatter(cfg.Locale)
	if err != nil {
		return err
	}

	caches := cache.NewManager(logger)
	g.Go(func() error {
		caches.Run(gctx, cacheCleanupInterval)
		return nil
	})

	opts := apphttp.DefaultOptions()
	opts.RateLimit = ratelimit.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		CleanupInterval:   opts.RateLimit.CleanupInterval,
		IdleTimeout:       opts.RateLimit.IdleTimeout,
	}
	opts.MonthCacheTTL = cfg.MonthCacheTTL

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Ledger:     book,
		Aggregator: aggregate.New(book, logger),
		Backups:    backup.New(book, logger),
		Reports:    report.New(book, format, logger),
		Settings:   settings.New(res.Store, logger),
		Display:    format,
		Ready: func(ctx context.Context) error {
			return backend.Probe(ctx, res.Store)
		},
		Logger: logger,
		Caches: caches,
	}, opts)

	g.Go(func() error {
		logger.Info("Starting HTTP server",
			"addr", srv.Addr,
			log.FieldBackend, backendCfg.Type.String(),
			"change_events", res.Notifier != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
