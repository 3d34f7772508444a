package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tablero/internal/log"
)

func TestMiddlewareStampsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, nil)})
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, logger)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard?area=IT", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request ID missing from context: %q", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q does not match %q", rr.Header().Get(RequestIDHeader), seen)
	}
	if rr.Code != http.StatusTeapot {
		t.Errorf("status not propagated: %d", rr.Code)
	}

	metrics := m.GetMetrics()
	if metrics.TotalRequests != 1 || metrics.FailedRequests != 1 {
		t.Errorf("unexpected metrics %+v", metrics)
	}

	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", seen, "10.0.0.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()) != "" {
		t.Error("empty context should have no request ID")
	}
}
