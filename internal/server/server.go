// Package server exposes run history and the latest output files over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/store"
)

// Options configures a Server.
type Options struct {
	// Store may be nil when run history is disabled.
	Store  store.Store
	Output config.OutputConfig
	Server config.ServerConfig
}

// Server serves the HTTP API.
type Server struct {
	store    store.Store
	output   config.OutputConfig
	files    map[string]string
	cfg      config.ServerConfig
	limiter  *rate.Limiter
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates a Server with its own metrics registry.
func New(opts Options) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		store:    opts.Store,
		output:   opts.Output,
		files:    dataFiles(opts.Output),
		cfg:      opts.Server,
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geothermal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geothermal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(s.requests, s.latency)

	if opts.Server.RateLimit > 0 {
		burst := opts.Server.Burst
		if burst <= 0 {
			burst = int(opts.Server.RateLimit)
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.Server.RateLimit), max(burst, 1))
	}
	return s
}

// Registry returns the registry exposed at /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Route("/api/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
			r.Get("/{id}/sites", s.handleListSites)
		})
		r.Get("/data/{file}", s.handleData)
	})

	return r
}

// Start serves handler on port until ctx is cancelled, then drains
// connections for up to ten seconds.
func Start(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

// dataFiles maps each servable output name to its content type.
func dataFiles(out config.OutputConfig) map[string]string {
	files := map[string]string{
		out.HeatmapFile: "application/json",
		out.SitesFile:   "application/json",
		out.PathsFile:   "application/json",
	}
	if out.GeoJSON {
		files[out.GeoJSONFile] = "application/geo+json"
	}
	delete(files, "")
	return files
}
