package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tablero/internal/amqp"
	"tablero/internal/core"
	"tablero/internal/log"
)

// Reloader drops the cached table and loads the source again.
type Reloader interface {
	Reload(ctx context.Context, reason string) *core.Table
}

// Consumer delivers reload requests from the broker.
type Consumer interface {
	ConsumeReload(ctx context.Context, handler amqp.ReloadHandler) error
}

// ReloadWorker keeps the process cache fresh: it reloads on broker
// messages and, when an interval is set, on a timer.
type ReloadWorker struct {
	reloader Reloader
	consumer Consumer
	interval time.Duration
	logger   *log.Logger
}

// NewReloadWorker builds a worker. consumer may be nil and interval may be
// zero; with neither, Run only warms the cache and waits for shutdown.
func NewReloadWorker(reloader Reloader, consumer Consumer, interval time.Duration, logger *log.Logger) *ReloadWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReloadWorker{
		reloader: reloader,
		consumer: consumer,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleReloadMessage processes a single reload request from AMQP
func (w *ReloadWorker) HandleReloadMessage(ctx context.Context, msg *amqp.ReloadMessage) error {
	if msg == nil {
		return errors.New("nil reload message")
	}
	w.logger.InfoContext(ctx, "Processing reload message",
		log.FieldReason, msg.Reason,
		log.FieldSource, msg.Source,
		log.FieldVersion, msg.Version)

	t := w.reloader.Reload(ctx, "amqp: "+msg.Reason)
	if t == nil {
		return fmt.Errorf("reload %q produced no table", msg.Reason)
	}
	return nil
}

// StartupCheck loads the table once so the first request is served warm.
func (w *ReloadWorker) StartupCheck(ctx context.Context) error {
	t := w.reloader.Reload(ctx, "startup")
	if t == nil {
		return errors.New("startup load produced no table")
	}
	log.NewStructuredLogger(w.logger).LogSnapshotLoaded(ctx, t.Source, t.Version, t.Len(), t.Synthetic)
	return nil
}

// Run blocks until ctx is done or the consumer fails.
func (w *ReloadWorker) Run(ctx context.Context) error {
	if err := w.StartupCheck(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup load failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			err := w.consumer.ConsumeReload(gctx, w.HandleReloadMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if w.interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					w.logger.DebugContext(gctx, "Periodic refresh", "interval", w.interval)
					w.reloader.Reload(gctx, "periodic refresh")
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	return g.Wait()
}
