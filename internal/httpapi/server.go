package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/pretzelai/openlingo/internal/config"
	"github.com/pretzelai/openlingo/internal/jobs"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

// Server exposes the article translation jobs over HTTP: creation, polling,
// an SSE progress stream, and runtime settings.
type Server struct {
	store    jobs.Store
	queue    *jobs.Queue
	defaults config.TranslateConfig
	settings runtimeSettingsStore
	apply    runtimeSettingsApplier

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func NewServer(store jobs.Store, queue *jobs.Queue, defaults config.TranslateConfig, opts ...Option) *Server {
	s := &Server{
		store:    store,
		queue:    queue,
		defaults: defaults,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/articles", s.handleArticles)
	s.mux.HandleFunc("/api/articles/stream", s.handleArticleStream)
	s.mux.HandleFunc("/api/articles/", s.handleArticleRoutes)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
