package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bistro/internal/amqp"
	"bistro/internal/backend"
	"bistro/internal/cli"
	"bistro/internal/config"
	"bistro/internal/ledger"
	"bistro/internal/log"
	"bistro/internal/worker"
)

const (
	shutdownTimeout = 15 * time.Second
	// Full resync to catch events dropped while the broker was unreachable.
	resyncInterval = 15 * time.Minute
)

func main() {
	boot := cli.SetupLogger(log.ComponentWorker, nil)
	if err := cli.LoadEnvFile(); err != nil {
		boot.WarnContext(context.Background(), "Failed to load .env file", log.FieldError, err)
	}

	cfg := cli.LoadAndValidateConfig(boot, (*config.Config).ValidateWorker)
	logger := cli.SetupLogger(log.ComponentWorker, cfg)
	logger.InfoContext(context.Background(), "Starting bistro-worker")

	ctx := context.Background()
	res := cli.InitBackend(ctx, logger, cfg, true)

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	writer, err := backend.NewFactory(logger.Logger).CreateSheetsWriter(ctx, bc)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize sheets writer", log.FieldError, err,
			"error_type", log.ErrorTypeUpstream)
		_ = res.Cleanup()
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(res.Store, writer, ledger.NewVATEngine(cfg.VATRate))

	sigCtx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		if err := res.Cleanup(); err != nil {
			logger.ErrorContext(ctx, "Backend cleanup error", log.FieldError, err)
		}
	})

	if err := syncWorker.StartupSync(sigCtx); err != nil {
		// Keep going; the next event or resync retries.
		logger.ErrorContext(sigCtx, "Failed startup sync", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		return res.Events.ConsumeLedgerEvents(gctx, func(ev *amqp.LedgerEvent) error {
			return syncWorker.HandleLedgerEvent(gctx, ev)
		})
	})
	g.Go(func() error {
		ticker := time.NewTicker(resyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := syncWorker.Sync(gctx); err != nil {
					logger.ErrorContext(gctx, "Periodic resync failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Worker stopped with error", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(sigCtx, done)
	logger.InfoContext(ctx, "Worker stopped gracefully")
}
