package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"tablero/internal/core"
	"tablero/internal/dashboard"
	"tablero/internal/log"
)

const dateLayout = "2006-01-02"

var templateFuncs = template.FuncMap{
	"percent": formatPercent,
}

var statusLabels = map[string]string{
	string(core.StatusImplemented):   "Implementadas",
	string(core.StatusViablePending): "Viables pendientes",
	string(core.StatusNotViable):     "No viables",
	string(core.StatusRejected):      "Rechazadas",
	string(core.StatusApproved):      "Aprobadas",
	string(core.StatusToReview):      "Por revisar",
}

type kpiTile struct {
	Label string
	Value string
	Class string
}

type panelRow struct {
	Label string
	Value string
}

type metricPanel struct {
	Metric   string
	Title    string
	ChartURL string
	Rows     []panelRow
}

// dashboardView is the template data for the page and its partial.
type dashboardView struct {
	Params       FilterParams
	Areas        []string
	Facilitators []string
	MinDate      string
	MaxDate      string

	KPIs        dashboard.KPIs
	Tiles       []kpiTile
	Panels      []metricPanel
	Empty       bool
	Overlapping bool

	Synthetic bool
	Origin    string
	Version   string
	LoadedAt  string
}

// handleIndex renders the full dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.templates == nil {
		log.FromContext(ctx).ErrorContext(ctx, "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	atomic.AddInt64(&s.appMetrics.pageViews, 1)

	view := s.buildView(r)
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", view); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Index template execution failed",
			log.FieldError, err,
			"template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleDashboardPartial renders the KPI and metric panels for HTMX swaps
// after a filter change.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.templates == nil {
		ErrorResponse(http.StatusInternalServerError, "Plantillas no disponibles").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.pageViews, 1)

	view := s.buildView(r)
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard", view); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard partial execution failed",
			log.FieldError, err,
			"template", "dashboard")
		ErrorResponse(http.StatusInternalServerError, "Error al mostrar el tablero").Write(w)
		return
	}
	NewHTMXResponse().
		Header("Vary", "HX-Request").
		BodyHTML(buf.String()).
		Write(w)
}

// handleChart draws /charts/{metric}.png for the filtered view. A metric
// without data answers 204 so the page can show its empty state.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	metric, known := dashboard.ParseMetric(name)
	if !ok || !known {
		JSONError(http.StatusNotFound, "unknown chart").Write(w)
		return
	}

	params := ParseFilterParams(r.URL.Query())
	d := s.svc.Dashboard(ctx, params.Criteria())

	img, err := renderBarChart(metric.Title(), displaySeries(metric, d.Series(metric)), metric == dashboard.MetricImplementation)
	if errors.Is(err, errNoChartData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Chart rendering failed",
			log.NewFields().
				WithOperation(log.OpRender).
				WithError(err).
				WithFilter(params.Area, params.Facilitator, params.From, params.To).
				ToSlice()...)
		JSONError(http.StatusInternalServerError, "chart rendering failed").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.chartsDrawn, 1)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *Server) buildView(r *http.Request) dashboardView {
	ctx := r.Context()
	params := ParseFilterParams(r.URL.Query())
	d := s.svc.Dashboard(ctx, params.Criteria())
	opts := s.svc.Options(ctx)

	view := dashboardView{
		Params:       params,
		Areas:        opts.Areas,
		Facilitators: opts.Facilitators,
		KPIs:         d.KPIs,
		Tiles:        kpiTiles(d.KPIs),
		Empty:        d.Empty(),
		Overlapping:  d.Overlapping,
		Synthetic:    d.Synthetic,
		Version:      d.Version,
	}
	if opts.HasDates {
		view.MinDate = opts.MinDate.Format(dateLayout)
		view.MaxDate = opts.MaxDate.Format(dateLayout)
	}
	if !d.LoadedAt.IsZero() {
		view.LoadedAt = d.LoadedAt.Format("2006-01-02 15:04")
	}
	if snap := s.svc.Snapshot(); snap != nil {
		view.Origin = snap.Origin
	}

	query := params.Query()
	if d.Version != "" {
		query.Set("v", d.Version)
	}
	for _, m := range dashboard.Metrics {
		series := displaySeries(m, d.Series(m))
		panel := metricPanel{
			Metric: string(m),
			Title:  m.Title(),
		}
		if len(series) > 0 {
			panel.ChartURL = "/charts/" + string(m) + ".png?" + query.Encode()
		}
		for _, p := range series {
			panel.Rows = append(panel.Rows, panelRow{Label: p.Label, Value: formatValue(m, p.Value)})
		}
		view.Panels = append(view.Panels, panel)
	}
	return view
}

func kpiTiles(k dashboard.KPIs) []kpiTile {
	return []kpiTile{
		{Label: "Total ideas", Value: strconv.Itoa(k.Total), Class: "kpi--total"},
		{Label: "Implementadas", Value: strconv.Itoa(k.Implemented), Class: "kpi--implemented"},
		{Label: "Viables pendientes", Value: strconv.Itoa(k.ViablePending), Class: "kpi--viable"},
		{Label: "No viables", Value: strconv.Itoa(k.NotViable), Class: "kpi--not-viable"},
		{Label: "Aprobadas", Value: strconv.Itoa(k.Approved), Class: "kpi--approved"},
		{Label: "Rechazadas", Value: strconv.Itoa(k.Rejected), Class: "kpi--rejected"},
		{Label: "Por revisar", Value: strconv.Itoa(k.ToReview), Class: "kpi--review"},
		{Label: "% Implementación", Value: formatPercent(k.ImplementationPct), Class: "kpi--rate"},
	}
}

// displaySeries swaps status keys for their Spanish labels.
func displaySeries(m dashboard.Metric, s dashboard.Series) dashboard.Series {
	if m != dashboard.MetricStatus {
		return s
	}
	out := make(dashboard.Series, len(s))
	for i, p := range s {
		if label, ok := statusLabels[p.Label]; ok {
			p.Label = label
		}
		out[i] = p
	}
	return out
}

func formatValue(m dashboard.Metric, v float64) string {
	if m == dashboard.MetricImplementation {
		return formatPercent(v)
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func escape(s string) string {
	return template.HTMLEscapeString(s)
}
