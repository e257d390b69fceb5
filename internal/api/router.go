// Package api mounts the HTTP surface: video delivery, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vesflix/internal/node"
)

// VideoServer writes one video response.
type VideoServer interface {
	ServeVideo(w http.ResponseWriter, r *http.Request, videoID string)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheState reports whether the cache store is connected.
type CacheState interface {
	IsOpen() bool
}

type Config struct {
	RateLimit int // requests per minute per IP on video routes, 0 disables
	Node      node.Identity
}

type Server struct {
	videos   VideoServer
	metadata Pinger
	cache    CacheState
	cfg      Config
}

func NewServer(videos VideoServer, metadata Pinger, cache CacheState, cfg Config) *Server {
	return &Server{
		videos:   videos,
		metadata: metadata,
		cache:    cache,
		cfg:      cfg,
	}
}

// Router builds the chi router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(AccessLog)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(s.cfg.RateLimit, time.Minute))
		r.Get("/videos/{id}", s.handleVideo)
		// Path used by the web player.
		r.Get("/api/videos/{id}", s.handleVideo)
	})
	return r
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	s.videos.ServeVideo(w, r, chi.URLParam(r, "id"))
}

type healthReport struct {
	Status   string        `json:"status"`
	Metadata string        `json:"metadata"`
	Cache    string        `json:"cache"`
	Node     node.Identity `json:"node"`
}

// handleHealth fails only when metadata is unreachable; a down cache store
// degrades performance but not correctness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := healthReport{Status: "ok", Metadata: "ok", Cache: "ok", Node: s.cfg.Node}
	status := http.StatusOK
	if err := s.metadata.Ping(ctx); err != nil {
		report.Status = "unavailable"
		report.Metadata = err.Error()
		status = http.StatusServiceUnavailable
	}
	if s.cache != nil && !s.cache.IsOpen() {
		report.Cache = "degraded"
		if report.Status == "ok" {
			report.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
