// Package http serves the resolution API together with health and metrics
// endpoints.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tunebridge/internal/core"
	"tunebridge/internal/resolver"
)

// QueryResolver is the resolution engine the server fronts.
type QueryResolver interface {
	Resolve(ctx context.Context, req resolver.Request) (*resolver.Result, error)
}

type Server struct {
	config   *core.ServerConfig
	logger   *zap.Logger
	resolver QueryResolver
	server   *http.Server
	metrics  *Metrics
}

type Metrics struct {
	ResolutionsTotal   *prometheus.CounterVec
	ScrapedTotal       prometheus.Counter
	BridgesTotal       *prometheus.CounterVec
	ResolveDuration    *prometheus.HistogramVec
	ScrapeCacheEntries prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunebridge_resolutions_total",
				Help: "Total number of queries resolved",
			},
			[]string{"type", "status"},
		),
		ScrapedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tunebridge_scraped_resolutions_total",
				Help: "Total number of resolutions served from embed payloads",
			},
		),
		BridgesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunebridge_bridges_total",
				Help: "Total number of bridge resolutions",
			},
			[]string{"status"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tunebridge_resolve_duration_seconds",
				Help:    "Time spent resolving queries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		ScrapeCacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tunebridge_scrape_cache_entries",
				Help: "Current number of cached embed payloads",
			},
		),
	}
}

func NewServer(config *core.ServerConfig, queryResolver QueryResolver, logger *zap.Logger) *Server {
	s := &Server{
		config:   config,
		logger:   logger,
		resolver: queryResolver,
		metrics:  newMetrics(),
	}

	prometheus.MustRegister(
		s.metrics.ResolutionsTotal,
		s.metrics.ScrapedTotal,
		s.metrics.BridgesTotal,
		s.metrics.ResolveDuration,
		s.metrics.ScrapeCacheEntries,
	)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/resolve", s.handleResolve)
	mux.HandleFunc("/v1/bridge", s.handleBridge)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "tunebridge"})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "tunebridge"})
	})

	mux.HandleFunc("/", s.handleIndex)

	return mux
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		s.logger.Error("Resolution failed", zap.String("query", req.Query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}

	s.recordResolution(result, req.Type, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

// handleBridge resolves a query and forces the bridge on its first track.
// This is the one endpoint where a failure becomes an error response, because
// an unbridgeable track cannot be played at all.
func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		s.logger.Error("Resolution failed", zap.String("query", req.Query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}
	s.recordResolution(result, req.Type, time.Since(start))

	if len(result.Tracks) == 0 {
		writeError(w, http.StatusNotFound, "no tracks found")
		return
	}

	track := result.Tracks[0]
	if _, err := track.Bridge(r.Context()); err != nil {
		s.metrics.BridgesTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Bridging failed", zap.String("track", track.Title), zap.Error(err))
		writeError(w, http.StatusBadGateway, "no playable match found")
		return
	}

	s.metrics.BridgesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, track)
}

func (s *Server) parseRequest(w http.ResponseWriter, r *http.Request) (resolver.Request, bool) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return resolver.Request{}, false
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return resolver.Request{}, false
	}

	queryType, ok := parseQueryType(r.URL.Query().Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown query type")
		return resolver.Request{}, false
	}

	return resolver.Request{
		Query:     query,
		Type:      queryType,
		Requester: r.URL.Query().Get("requester"),
	}, true
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>TuneBridge</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">&#127925; TuneBridge</h1>
    <p>Music query resolution and stream bridging service</p>

    <h2>Endpoints</h2>
    <div class="endpoint">&#128269; <a href="/v1/resolve?q=never+gonna+give+you+up">/v1/resolve</a> - Resolve a query to canonical metadata</div>
    <div class="endpoint">&#127909; <a href="/v1/bridge?q=never+gonna+give+you+up">/v1/bridge</a> - Resolve and bridge to a playable stream</div>
    <div class="endpoint">&#128202; <a href="/metrics">/metrics</a> - Prometheus metrics</div>
    <div class="endpoint">&#128154; <a href="/healthz">/healthz</a> - Health check</div>
    <div class="endpoint">&#9989; <a href="/readyz">/readyz</a> - Readiness check</div>
</body>
</html>`))
}

func (s *Server) recordResolution(result *resolver.Result, queryType core.QueryType, elapsed time.Duration) {
	label := resolvedTypeLabel(result, queryType)

	status := "ok"
	if result.Empty() {
		status = "empty"
	}

	s.metrics.ResolutionsTotal.WithLabelValues(label, status).Inc()
	s.metrics.ResolveDuration.WithLabelValues(label).Observe(elapsed.Seconds())

	if len(result.Tracks) > 0 && result.Tracks[0].Metadata != nil &&
		result.Tracks[0].Metadata.Source.Kind == core.PayloadScraped {
		s.metrics.ScrapedTotal.Inc()
	}
}

// resolvedTypeLabel prefers the type stamped during resolution over the
// requested one, which may still be auto.
func resolvedTypeLabel(result *resolver.Result, requested core.QueryType) string {
	if len(result.Tracks) > 0 && result.Tracks[0].QueryType != "" {
		return string(result.Tracks[0].QueryType)
	}
	if requested == "" {
		return string(core.QueryAuto)
	}
	return string(requested)
}

func parseQueryType(raw string) (core.QueryType, bool) {
	switch queryType := core.QueryType(raw); queryType {
	case "":
		return core.QueryAuto, true
	case core.QueryAuto, core.QueryTrack, core.QueryPlaylist, core.QueryAlbum, core.QuerySearch:
		return queryType, true
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// SetScrapeCacheEntries publishes the current embed cache size.
func (s *Server) SetScrapeCacheEntries(n int) {
	s.metrics.ScrapeCacheEntries.Set(float64(n))
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}
