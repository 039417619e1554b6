package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bistro/internal/cli"
	"bistro/internal/config"
	apphttp "bistro/internal/http"
	"bistro/internal/insights"
	"bistro/internal/ledger"
	"bistro/internal/log"
	"bistro/internal/middleware/ratelimit"
	"bistro/internal/services"
	"bistro/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	boot := cli.SetupLogger(log.ComponentApp, nil)
	if err := cli.LoadEnvFile(); err != nil {
		boot.WarnContext(context.Background(), "Failed to load .env file", log.FieldError, err)
	}

	cfg := cli.LoadAndValidateConfig(boot, (*config.Config).Validate)
	logger := cli.SetupLogger(log.ComponentApp, cfg)

	ctx := context.Background()
	res := cli.InitBackend(ctx, logger, cfg, false)

	vat := ledger.NewVATEngine(cfg.VATRate)
	ledgerSvc := services.NewLedgerService(ctx, res.Store, res.Publisher, vat,
		ledger.WithPasscode(cfg.ClearPasscode))
	backups := services.NewBackupService(ledgerSvc.Store(), res.Store)

	autosave := worker.NewAutoSaveWorker(backups, cfg.AutoSaveInterval)
	if err := autosave.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start auto-save worker", log.FieldError, err)
		os.Exit(1)
	}

	var analyzer insights.Analyzer
	if cfg.GeminiAPIKey != "" {
		analyzer = insights.NewCachedAnalyzer(insights.NewGeminiAnalyzer(cfg.GeminiAPIKey, cfg.GeminiModel), nil)
		logger.InfoContext(ctx, "AI analysis enabled", "model", cfg.GeminiModel)
	} else {
		logger.InfoContext(ctx, "AI analysis disabled - no GEMINI_API_KEY provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Ledger:    ledgerSvc,
		Backups:   backups,
		Analyzer:  analyzer,
		Logger:    logger.WithComponent(log.ComponentHTTP),
		RateLimit: ratelimit.DefaultConfig(),
	})

	sigCtx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "Server shutdown error", log.FieldError, err)
		}
		if err := autosave.Stop(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "Auto-save shutdown error", log.FieldError, err)
		}
		if err := ledgerSvc.Close(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "Ledger event drain error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.ErrorContext(shutdownCtx, "Backend cleanup error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting bistro server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", res.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Server error", log.FieldError, err, "port", cfg.Port)
		_ = autosave.Stop(ctx)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(sigCtx, done)
	logger.InfoContext(ctx, "Server stopped gracefully")
}
