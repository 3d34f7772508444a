package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tablero/internal/cache"
	"tablero/internal/dashboard"
	"tablero/internal/loader"
	"tablero/internal/log"
	"tablero/internal/services"
	"tablero/internal/sheets/memory"
)

var ideaRows = [][]string{
	{"Fecha", "Área", "Soporte procesos", "Nombre", "Título", "¿Implementado?", "Viabilidad", "1er filtro"},
	{"2024-01-05", "IT", "Marta", "Ana\nBeto", "Bot", "VERDADERO", "Viable", "Aprobado"},
	{"2024-02-10", "IT", "Marta", "Ana", "Panel", "FALSO", "Viable", "Aprobado"},
	{"2024-03-15", "RRHH", "Luis", "Carla", "Encuesta", "FALSO", "No viable", "Rechazado"},
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Component: "test", Handler: slog.NewTextHandler(io.Discard, nil)})
}

func newTestServer(t *testing.T, rows [][]string, cfg Config) *Server {
	t.Helper()
	logger := quietLogger()
	l := loader.New(memory.New(rows), loader.Config{Logger: logger})
	tables := cache.NewTableCache(l, time.Minute, logger)
	srv := NewServer(":0", services.NewDashboardService(tables, 0, logger), logger, cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load status=%d", rr.Code)
	}

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Tablero de ideas", "Total ideas", `value="Todas"`, "/charts/areas.png"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing security headers")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/ideas", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestAPIDashboardAppliesFilters(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})

	tests := []struct {
		name  string
		query string
		total int
	}{
		{"no filter", "", 3},
		{"area", "?area=IT", 2},
		{"sentinel area", "?area=Todas", 3},
		{"facilitator", "?facilitator=Luis", 1},
		{"date range", "?from=2024-02-01&to=2024-03-31", 2},
		{"half range ignored", "?from=2024-02-01", 3},
		{"no match", "?area=Legal", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/dashboard"+tt.query, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			if cc := rr.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
				t.Errorf("Cache-Control=%q", cc)
			}
			var d dashboard.Dashboard
			if err := json.Unmarshal(rr.Body.Bytes(), &d); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if d.KPIs.Total != tt.total {
				t.Fatalf("total=%d, want %d", d.KPIs.Total, tt.total)
			}
		})
	}
}

func TestAPIOptions(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/options", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got struct {
		Areas        []string `json:"areas"`
		Facilitators []string `json:"facilitators"`
		MinDate      string   `json:"min_date"`
		MaxDate      string   `json:"max_date"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(got.Areas, ",") != "Todas,IT,RRHH" {
		t.Errorf("areas=%v", got.Areas)
	}
	if strings.Join(got.Facilitators, ",") != "Todos,Luis,Marta" {
		t.Errorf("facilitators=%v", got.Facilitators)
	}
	if got.MinDate != "2024-01-05" || got.MaxDate != "2024-03-15" {
		t.Errorf("dates=%s..%s", got.MinDate, got.MaxDate)
	}
}

func TestDashboardPartialShowsEmptyState(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})
	req := httptest.NewRequest(http.MethodGet, "/ui/dashboard?area=Legal", nil)
	req.Header.Set("HX-Request", "true")
	rr := serve(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Sin datos para los filtros seleccionados") {
		t.Fatalf("missing empty state: %s", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "<html") {
		t.Fatal("partial must not render the full page")
	}
}

func TestCharts(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})

	tests := []struct {
		path   string
		status int
	}{
		{"/charts/areas.png", http.StatusOK},
		{"/charts/implementation.png?area=IT", http.StatusOK},
		{"/charts/status.png", http.StatusOK},
		{"/charts/areas.png?area=Legal", http.StatusNoContent},
		{"/charts/unknown.png", http.StatusNotFound},
		{"/charts/areas", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := serve(srv, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.status {
				t.Fatalf("status=%d, want %d", rr.Code, tt.status)
			}
			if tt.status == http.StatusOK {
				if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
					t.Errorf("Content-Type=%q", ct)
				}
				if !strings.HasPrefix(rr.Body.String(), "\x89PNG") {
					t.Error("body is not a PNG")
				}
			}
		})
	}
}

func TestReload(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})

	req := httptest.NewRequest(http.MethodPost, "/admin/reload", strings.NewReader(`{"reason":"test"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := serve(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var snap snapshotResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Rows != 3 || snap.Version == "" || snap.Synthetic {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/reload", strings.NewReader("reason=boton"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rr = serve(srv, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("htmx status=%d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "dataset:reloaded") || !strings.Contains(trigger, "show-notification") {
		t.Fatalf("HX-Trigger=%q", trigger)
	}
}

func TestReloadBadBody(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})
	req := httptest.NewRequest(http.MethodPost, "/admin/reload", strings.NewReader(`{"reason":`))
	rr := serve(srv, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestReloadRateLimited(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{ReloadsPerMinute: 2})

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
		req.Header.Set("Accept", "application/json")
		last = serve(srv, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestReloadRequiresPost(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/admin/reload", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestSyntheticFallbackBanner(t *testing.T) {
	srv := newTestServer(t, [][]string{{"Nombre"}}, Config{})
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Mostrando datos sintéticos") {
		t.Fatal("missing synthetic banner")
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})
	serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	serve(srv, httptest.NewRequest(http.MethodGet, "/charts/areas.png", nil))

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"http_requests_total", "dashboard_views_total 1", "charts_rendered_total 1", "dataset_rows 3"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, ideaRows, Config{})
	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age=3600") {
		t.Errorf("Cache-Control=%q", cc)
	}
}
