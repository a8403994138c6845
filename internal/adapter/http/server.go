package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	"github.com/couchcryptid/mountain-forecast-etl/internal/pipeline"
	"github.com/couchcryptid/mountain-forecast-etl/internal/render"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunReporter exposes the last completed pipeline run.
type RunReporter interface {
	sharedobs.ReadinessChecker
	Last() (pipeline.Result, bool)
}

// Server exposes health, readiness, metrics, and forecast HTTP endpoints.
type Server struct {
	httpServer *http.Server
	runs       RunReporter
	renderer   render.Renderer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /forecasts, and /forecasts/grid routes.
func NewServer(addr string, runs RunReporter, renderer render.Renderer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runs:     runs,
		renderer: renderer,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(runs))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /forecasts", s.handleForecasts)
	mux.HandleFunc("GET /forecasts/grid", s.handleGrid)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleForecasts(w http.ResponseWriter, r *http.Request) {
	res, ok := s.runs.Last()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no completed run"})
		return
	}
	if m := r.URL.Query().Get("mountain"); m != "" {
		res.Forecasts = filterMountain(res.Forecasts, m)
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	res, ok := s.runs.Last()
	if !ok {
		http.Error(w, "no completed run", http.StatusServiceUnavailable)
		return
	}
	forecasts := res.Forecasts
	if m := r.URL.Query().Get("mountain"); m != "" {
		forecasts = filterMountain(forecasts, m)
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, forecasts); err != nil {
		s.logger.Error("render grid failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func filterMountain(forecasts []domain.MountainForecast, mountain string) []domain.MountainForecast {
	out := make([]domain.MountainForecast, 0, len(forecasts))
	for _, f := range forecasts {
		if strings.EqualFold(f.Mountain, mountain) {
			out = append(out, f)
		}
	}
	return out
}
