package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"tablero/internal/cache"
	"tablero/internal/core"
	"tablero/internal/dashboard"
	"tablero/internal/filter"
	"tablero/internal/log"
	"tablero/internal/middleware/ratelimit"
	"tablero/internal/middleware/security"
	"tablero/internal/middleware/trace"
	appweb "tablero/web"
)

// Dashboards is what the HTTP layer needs from the dashboard service.
type Dashboards interface {
	Dashboard(ctx context.Context, c filter.Criteria) dashboard.Dashboard
	Options(ctx context.Context) filter.Options
	Reload(ctx context.Context, reason string) *core.Table
	Ready() bool
	Snapshot() *core.Table
	CacheStats() cache.Stats
}

// Config tunes the server. Zero values fall back to defaults.
type Config struct {
	ReloadsPerMinute int
	TrustedProxies   []string
}

type Server struct {
	http.Server
	templates        *template.Template
	svc              Dashboards
	logger           *log.Logger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

// appMetrics counts application level events for /metrics.
type appMetrics struct {
	uptime      time.Time
	pageViews   int64
	apiRequests int64
	chartsDrawn int64
	reloads     int64
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, svc Dashboards, logger *log.Logger, cfg Config) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cfg.ReloadsPerMinute <= 0 {
		cfg.ReloadsPerMinute = 6
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			httpLogger.Warn("Ignoring trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	s := &Server{
		svc:              svc,
		logger:           httpLogger,
		securityDetector: detector,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.ReloadsPerMinute,
		}),
		traceMiddleware: trace.NewMiddleware(detector.ExtractClientIP, logger),
		appMetrics:      &appMetrics{uptime: time.Now()},
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		httpLogger.Error("Failed parsing templates",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldError, err,
			"error_type", log.ErrorTypeConfiguration)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		httpLogger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboardPartial)
	mux.Handle("GET /api/dashboard", security.NoStore(http.HandlerFunc(s.handleAPIDashboard)))
	mux.Handle("GET /api/options", security.NoStore(http.HandlerFunc(s.handleAPIOptions)))
	mux.Handle("GET /api/snapshot", security.NoStore(http.HandlerFunc(s.handleAPISnapshot)))
	mux.Handle("GET /charts/{file}", security.NoStore(http.HandlerFunc(s.handleChart)))

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimited)
	mux.Handle("POST /admin/reload", limited(http.HandlerFunc(s.handleReload)))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Outermost first: trace assigns the request id the logger picks up.
	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(logger)(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(httpLogger)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, "Demasiadas recargas, espera un momento").Write(w)
		return
	}
	JSONError(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
