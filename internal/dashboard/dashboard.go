package dashboard

import (
	"time"

	"tablero/internal/core"
)

// Metric names one chartable result table.
type Metric string

const (
	MetricAreas          Metric = "areas"
	MetricViable         Metric = "viable"
	MetricImplementation Metric = "implementation"
	MetricAuthors        Metric = "authors"
	MetricSupport        Metric = "support"
	MetricStatus         Metric = "status"
)

// Metrics lists every chartable metric in display order.
var Metrics = []Metric{MetricAreas, MetricViable, MetricImplementation, MetricAuthors, MetricSupport, MetricStatus}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, bool) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Title is the heading shown above the metric's chart.
func (m Metric) Title() string {
	switch m {
	case MetricAreas:
		return "Total ideas por área"
	case MetricViable:
		return "Ideas viables (evolución)"
	case MetricImplementation:
		return "% Implementación"
	case MetricAuthors:
		return "Top generadores"
	case MetricSupport:
		return "Top soporte"
	case MetricStatus:
		return "Estado de revisión"
	default:
		return string(m)
	}
}

// Dashboard bundles every result table for one filtered view.
type Dashboard struct {
	KPIs               KPIs      `json:"kpis"`
	IdeasPerArea       Series    `json:"ideas_per_area"`
	ViableTrend        Series    `json:"viable_trend"`
	ImplementationRate Series    `json:"implementation_rate"`
	TopAuthors         Series    `json:"top_authors"`
	TopSupport         Series    `json:"top_support"`
	Status             Series    `json:"status"`
	Overlapping        bool      `json:"overlapping"`
	Version            string    `json:"version"`
	Synthetic          bool      `json:"synthetic"`
	LoadedAt           time.Time `json:"loaded_at"`
}

// Compute runs every aggregate over t. topN <= 0 uses DefaultTopN.
func Compute(t *core.Table, topN int) Dashboard {
	if topN <= 0 {
		topN = DefaultTopN
	}
	d := Dashboard{
		KPIs:               ComputeKPIs(t),
		IdeasPerArea:       IdeasPerArea(t),
		ViableTrend:        ViableTrend(t),
		ImplementationRate: ImplementationRate(t),
		TopAuthors:         TopAuthors(t, topN),
		TopSupport:         TopSupport(t, topN),
		Status:             StatusBreakdown(t),
	}
	d.Overlapping = d.KPIs.Overlapping(d.Status)
	if t != nil {
		d.Version = t.Version
		d.Synthetic = t.Synthetic
		d.LoadedAt = t.LoadedAt
	}
	return d
}

// Empty reports whether the view holds no ideas.
func (d Dashboard) Empty() bool { return d.KPIs.Total == 0 }

// Series returns the result table behind a metric.
func (d Dashboard) Series(m Metric) Series {
	switch m {
	case MetricAreas:
		return d.IdeasPerArea
	case MetricViable:
		return d.ViableTrend
	case MetricImplementation:
		return d.ImplementationRate
	case MetricAuthors:
		return d.TopAuthors
	case MetricSupport:
		return d.TopSupport
	case MetricStatus:
		return d.Status
	default:
		return nil
	}
}
