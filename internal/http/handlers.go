package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"tablero/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(health)
}

// handleReady reports ready once templates are parsed and a table is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if snap := s.svc.Snapshot(); snap != nil {
		checks["dataset"] = map[string]interface{}{
			"status":    "ok",
			"version":   snap.Version,
			"rows":      snap.Len(),
			"synthetic": snap.Synthetic,
		}
	} else {
		checks["dataset"] = "not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	stats := s.svc.CacheStats()
	checks["cache"] = map[string]interface{}{
		"entries": stats.Entries,
		"status":  "ok",
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheStats := s.svc.CacheStats()

	pageViews := atomic.LoadInt64(&s.appMetrics.pageViews)
	apiRequests := atomic.LoadInt64(&s.appMetrics.apiRequests)
	chartsDrawn := atomic.LoadInt64(&s.appMetrics.chartsDrawn)
	reloads := atomic.LoadInt64(&s.appMetrics.reloads)
	uptime := time.Since(s.appMetrics.uptime)

	var rows int
	if snap := s.svc.Snapshot(); snap != nil {
		rows = snap.Len()
	}

	w.WriteHeader(http.StatusOK)

	// Prometheus-like format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_requests_failed_total HTTP requests answered with a 4xx or 5xx\n")
	fmt.Fprintf(w, "# TYPE http_requests_failed_total counter\n")
	fmt.Fprintf(w, "http_requests_failed_total %d\n\n", traceMetrics.FailedRequests)

	fmt.Fprintf(w, "# HELP dashboard_views_total Dashboard page and partial renders\n")
	fmt.Fprintf(w, "# TYPE dashboard_views_total counter\n")
	fmt.Fprintf(w, "dashboard_views_total %d\n\n", pageViews)

	fmt.Fprintf(w, "# HELP api_requests_total JSON API requests\n")
	fmt.Fprintf(w, "# TYPE api_requests_total counter\n")
	fmt.Fprintf(w, "api_requests_total %d\n\n", apiRequests)

	fmt.Fprintf(w, "# HELP charts_rendered_total Chart images rendered\n")
	fmt.Fprintf(w, "# TYPE charts_rendered_total counter\n")
	fmt.Fprintf(w, "charts_rendered_total %d\n\n", chartsDrawn)

	fmt.Fprintf(w, "# HELP dataset_reloads_total Reloads requested over HTTP\n")
	fmt.Fprintf(w, "# TYPE dataset_reloads_total counter\n")
	fmt.Fprintf(w, "dataset_reloads_total %d\n\n", reloads)

	fmt.Fprintf(w, "# HELP dataset_rows Ideas in the current snapshot\n")
	fmt.Fprintf(w, "# TYPE dataset_rows gauge\n")
	fmt.Fprintf(w, "dataset_rows %d\n\n", rows)

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total %d\n\n", cacheStats.Hits)

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total %d\n\n", cacheStats.Misses)

	fmt.Fprintf(w, "# HELP cache_loads_total Source loads performed by the cache\n")
	fmt.Fprintf(w, "# TYPE cache_loads_total counter\n")
	fmt.Fprintf(w, "cache_loads_total %d\n\n", cacheStats.Loads)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", uptime.Seconds())
}

// handleAPIDashboard returns the filtered dashboard as JSON.
func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.appMetrics.apiRequests, 1)
	params := ParseFilterParams(r.URL.Query())
	d := s.svc.Dashboard(r.Context(), params.Criteria())
	NewHTMXResponse().JSON(d).Write(w)
}

// handleAPIOptions returns the values the filter selectors offer.
func (s *Server) handleAPIOptions(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.appMetrics.apiRequests, 1)
	opts := s.svc.Options(r.Context())

	resp := map[string]interface{}{
		"areas":        opts.Areas,
		"facilitators": opts.Facilitators,
	}
	if opts.HasDates {
		resp["min_date"] = opts.MinDate.Format(dateLayout)
		resp["max_date"] = opts.MaxDate.Format(dateLayout)
	}
	NewHTMXResponse().JSON(resp).Write(w)
}

// handleAPISnapshot describes the table currently served.
func (s *Server) handleAPISnapshot(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.appMetrics.apiRequests, 1)
	if !s.svc.Ready() {
		JSONError(http.StatusServiceUnavailable, "dataset not loaded").Write(w)
		return
	}
	NewHTMXResponse().JSON(snapshotInfo(s.svc)).Write(w)
}

// handleReload drops the cached table and loads the source again. The body
// may carry a "reason" as JSON or form data.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		logger.WarnContext(ctx, "Invalid reload request body", log.FieldError, err)
		if isHTMX(r) {
			ErrorResponse(http.StatusBadRequest, "Solicitud inválida").Write(w)
		} else {
			JSONError(http.StatusBadRequest, "invalid request body").Write(w)
		}
		return
	}
	reason := parser.Get("reason")
	if reason == "" {
		reason = "manual"
	}

	atomic.AddInt64(&s.appMetrics.reloads, 1)
	t := s.svc.Reload(ctx, "http: "+reason)

	logger.InfoContext(ctx, "Dataset reload requested",
		log.FieldReason, reason,
		log.FieldVersion, t.Version,
		log.FieldRows, t.Len(),
		log.FieldSynthetic, t.Synthetic)

	wantJSON := parser.IsJSON() || r.Header.Get("Accept") == "application/json"
	if isHTMX(r) || !wantJSON {
		msg := fmt.Sprintf("Datos recargados: %d ideas", t.Len())
		notif := NotificationSuccess
		if t.Synthetic {
			msg = "Fuente no disponible, mostrando datos sintéticos"
			notif = NotificationWarning
		}
		NewHTMXResponse().
			TriggerDatasetReloaded(t.Version, t.Len()).
			TriggerNotification(notif, msg, 4000).
			BodyHTML(`<div class="success">` + escape(msg) + `</div>`).
			Write(w)
		return
	}

	NewHTMXResponse().
		TriggerDatasetReloaded(t.Version, t.Len()).
		JSON(snapshotInfo(s.svc)).
		Write(w)
}

type snapshotResponse struct {
	Version   string    `json:"version"`
	Source    string    `json:"source,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	Rows      int       `json:"rows"`
	Skipped   int       `json:"skipped"`
	Synthetic bool      `json:"synthetic"`
	LoadedAt  time.Time `json:"loaded_at"`
}

func snapshotInfo(svc Dashboards) snapshotResponse {
	t := svc.Snapshot()
	if t == nil {
		return snapshotResponse{}
	}
	return snapshotResponse{
		Version:   t.Version,
		Source:    t.Source,
		Origin:    t.Origin,
		Rows:      t.Len(),
		Skipped:   t.Skipped,
		Synthetic: t.Synthetic,
		LoadedAt:  t.LoadedAt,
	}
}
