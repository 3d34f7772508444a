package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"tablero/internal/cache"
	"tablero/internal/core"
	"tablero/internal/dashboard"
	"tablero/internal/filter"
	"tablero/internal/log"
)

const tracerName = "tablero/services"

// Tables is the cached view of the configured source.
type Tables interface {
	Get(ctx context.Context) *core.Table
	Reload(ctx context.Context) *core.Table
	Current() *core.Table
	Stats() cache.Stats
}

// DashboardService answers every presentation request: it pulls the cached
// table, narrows it to the user's selection and aggregates the result.
type DashboardService struct {
	tables Tables
	topN   int
	logger *log.Logger
}

func NewDashboardService(tables Tables, topN int, logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if topN <= 0 {
		topN = dashboard.DefaultTopN
	}
	return &DashboardService{
		tables: tables,
		topN:   topN,
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

// Dashboard computes the full view for c.
func (s *DashboardService) Dashboard(ctx context.Context, c filter.Criteria) dashboard.Dashboard {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Dashboard")
	defer span.End()

	from, to := rangeStrings(c.Range)
	span.SetAttributes(
		attribute.String("filter.area", c.Area),
		attribute.String("filter.facilitator", c.Facilitator),
		attribute.String("filter.from", from),
		attribute.String("filter.to", to),
	)

	_, loadSpan := otel.Tracer(tracerName).Start(ctx, "Tables.Get")
	t := s.tables.Get(ctx)
	loadSpan.End()

	_, filterSpan := otel.Tracer(tracerName).Start(ctx, "filter.Apply")
	view := filter.Apply(t, c)
	filterSpan.End()

	_, aggSpan := otel.Tracer(tracerName).Start(ctx, "dashboard.Compute")
	d := dashboard.Compute(view, s.topN)
	aggSpan.End()

	span.SetAttributes(
		attribute.Int("dashboard.total", t.Len()),
		attribute.Int("dashboard.filtered", view.Len()),
		attribute.String("dashboard.version", d.Version),
	)

	fields := log.NewFields().
		WithOperation(log.OpAggregate).
		WithFilter(c.Area, c.Facilitator, from, to)
	s.logger.DebugContext(ctx, "Dashboard computed",
		append(fields.ToSlice(), log.FieldRows, view.Len(), "total", t.Len())...)

	return d
}

// Options lists the filter choices for the current table.
func (s *DashboardService) Options(ctx context.Context) filter.Options {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Options")
	defer span.End()
	return filter.OptionsFor(s.tables.Get(ctx))
}

// Reload discards the cached table and loads the source again.
func (s *DashboardService) Reload(ctx context.Context, reason string) *core.Table {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Reload")
	defer span.End()
	span.SetAttributes(attribute.String("reload.reason", reason))

	start := time.Now()
	t := s.tables.Reload(ctx)
	s.logger.InfoContext(ctx, "Dataset reloaded",
		append(log.NewFields().
			WithOperation(log.OpReload).
			WithSnapshot(t.Source, t.Version, t.Len(), t.Synthetic).ToSlice(),
			log.FieldReason, reason,
			log.FieldDuration, time.Since(start).Milliseconds())...)
	return t
}

// Ready reports whether a table has been loaded at least once.
func (s *DashboardService) Ready() bool {
	return s.tables.Current() != nil
}

// Snapshot returns the most recently loaded table without triggering a load.
func (s *DashboardService) Snapshot() *core.Table {
	return s.tables.Current()
}

// CacheStats exposes the table cache counters.
func (s *DashboardService) CacheStats() cache.Stats {
	return s.tables.Stats()
}

func rangeStrings(r *core.DateRange) (string, string) {
	if r == nil {
		return "", ""
	}
	return r.From.Format(time.DateOnly), r.To.Format(time.DateOnly)
}
