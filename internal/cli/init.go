// Package cli provides common CLI initialization utilities shared by
// cmd/tablero and cmd/tablero-import.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tablero/internal/backend"
	"tablero/internal/config"
	"tablero/internal/loader"
	"tablero/internal/log"
)

// SetupLogger builds the process logger for the given level name and sets
// it as the slog default. An unknown level falls back to info.
func SetupLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLoader builds the configured source and wraps it in a loader. A
// source that cannot be constructed is logged and replaced by none, so the
// loader serves the synthetic dataset. The returned cleanup is never nil.
func NewLoader(ctx context.Context, cfg *config.Config, logger *log.Logger) (*loader.Loader, func() error, error) {
	aliases, err := loader.Aliases(cfg.Columns)
	if err != nil {
		return nil, nil, fmt.Errorf("column aliases: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	lcfg := loader.Config{Aliases: aliases, Seed: cfg.SyntheticSeed, Logger: logger}

	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend, serving synthetic data",
			"backend", bcfg.Type.String(),
			log.FieldError, err,
			"error_type", log.ErrorTypeSource)
		return loader.New(nil, lcfg), func() error { return nil }, nil
	}
	return loader.New(result.Source, lcfg), result.Close, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context) error) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			if err := cleanup(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Shutdown cleanup failed", log.FieldError, err)
			}
		}
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
