// Package cli provides common CLI initialization utilities shared by
// cmd/bistro, cmd/bistro-worker and cmd/bistroctl.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bistro/internal/backend"
	"bistro/internal/config"
	"bistro/internal/log"
)

// SetupLogger builds the process logger for component at the configured
// level, installs it as the slog default and returns it.
func SetupLogger(component string, cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		lc.Level = cfg.SlogLevel()
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. A missing file is
// not an error.
func LoadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// LoadAndValidateConfig loads configuration and runs validate on it, which
// is Config.Validate or Config.ValidateWorker. It exits the process on
// failure.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		logger.ErrorContext(context.Background(), "Configuration validation failed",
			log.FieldError, err, "error_type", log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured store and event publisher. It exits the
// process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, requireAMQP bool) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err == nil {
		bc.RequireAMQP = requireAMQP
		var res *backend.BackendResult
		res, err = backend.NewFactory(logger.Logger).CreateBackend(ctx, bc)
		if err == nil {
			return res
		}
	}
	logger.ErrorContext(ctx, "Failed to initialize backend",
		log.FieldError, err, "backend", cfg.DataBackend, "error_type", log.ErrorTypeDatabase)
	os.Exit(1)
	return nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. Once
// it fires, cleanup runs with a context bounded by timeout and the returned
// channel closes when cleanup is done.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.InfoContext(context.Background(), "Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.WarnContext(shutdownCtx, "Shutdown timeout reached")
			return
		}
		logger.InfoContext(shutdownCtx, "Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has
// finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
