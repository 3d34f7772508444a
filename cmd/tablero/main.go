package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tablero/internal/amqp"
	"tablero/internal/cache"
	"tablero/internal/cli"
	"tablero/internal/config"
	apphttp "tablero/internal/http"
	"tablero/internal/log"
	"tablero/internal/observability"
	"tablero/internal/services"
	"tablero/internal/worker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional outside local development
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	startCtx := context.Background()

	shutdownTracer, err := observability.InitTracer(startCtx, observability.Config{
		Enabled:  cfg.TracingEnabled,
		Endpoint: cfg.TracingEndpoint,
		Version:  version,
	}, logger)
	if err != nil {
		logger.Warn("Tracing unavailable, continuing without it", log.FieldError, err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	ld, closeSource, err := cli.NewLoader(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSource(); err != nil {
			logger.Warn("Closing data source failed", log.FieldError, err)
		}
	}()

	tables := cache.NewTableCache(ld, cfg.CacheTTL, logger)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(tables.Entries())
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	svc := services.NewDashboardService(tables, cfg.TopN, logger)
	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.Config{ReloadsPerMinute: cfg.ReloadsPerMinute})

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, external reloads disabled", log.FieldError, err)
		} else {
			defer client.Close()
			consumer = client
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}
	reloadWorker := worker.NewReloadWorker(svc, consumer, cfg.RefreshInterval, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, srv.Shutdown)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting tablero server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := reloadWorker.Run(gctx); err != nil {
			logger.Error("Reload worker stopped", log.FieldError, err)
		}
		return nil
	})

	runErr := g.Wait()
	if ctx.Err() != nil {
		<-done
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(flushCtx); err != nil {
		logger.Warn("Tracer shutdown failed", log.FieldError, err)
	}
	return runErr
}
