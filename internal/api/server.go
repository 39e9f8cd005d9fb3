// Package api serves stored formations over HTTP and WebSocket.
//
// The server is read-only: it renders formations already written by a
// decomposition pass and never changes the database.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/FocuswithJustin/formations/core/cache"
	"github.com/FocuswithJustin/formations/core/lexicon"
	"github.com/FocuswithJustin/formations/core/render"
	ttlcache "github.com/FocuswithJustin/formations/internal/cache"
	"github.com/FocuswithJustin/formations/internal/corpus"
	"github.com/FocuswithJustin/formations/internal/logging"
	"github.com/FocuswithJustin/formations/internal/store"
)

// Backend is the read side of the formation store.
type Backend interface {
	render.Source
	WordInfo(ctx context.Context, letters string) (store.WordInfo, error)
	Stats(ctx context.Context) (store.Stats, error)
	LatestRun(ctx context.Context) (*store.Run, error)
}

// Server answers formation queries.
type Server struct {
	cfg      Config
	backend  Backend
	renderer *render.Service
	renders  cache.Cache[string, []render.Rendered]
	norm     *corpus.Normalizer
	health   *ttlcache.TTLCache[string, HealthInfo]
	hub      *Hub
	started  time.Time
}

// New creates a server over backend. Query words are normalized against
// alphabet before lookup, so pointed text finds its consonantal form.
func New(cfg Config, backend Backend, alphabet *lexicon.Alphabet) *Server {
	s := &Server{
		cfg:     cfg,
		backend: backend,
		norm:    corpus.NewNormalizer(alphabet),
		health:  ttlcache.New[string, HealthInfo](cfg.HealthTTL),
		hub:     NewHub(),
		started: time.Now(),
	}
	var opts []render.Option
	if cfg.CacheSize > 0 {
		s.renders = cache.NewLRU[string, []render.Rendered](cfg.CacheSize)
		opts = append(opts, render.WithCache(s.renders))
	}
	s.renderer = render.NewService(backend, opts...)
	return s
}

// Handler returns the routed handler with CORS, security headers and
// access logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /query/{word}", s.handleQuery)
	mux.HandleFunc("GET /formations/{word}", s.handleFormations)
	mux.HandleFunc("GET /words/{word}", s.handleWord)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", s.handleNotFound)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return logging.HTTPMiddleware(c.Handler(securityHeaders(mux)))
}

// ListenAndServe serves on cfg.Port until ctx is cancelled, then closes
// WebSocket clients and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.serve(ctx, srv)
}

func (s *Server) serve(ctx context.Context, srv *http.Server) error {
	if s.cfg.allowAllOrigins() {
		logging.SecurityEvent("cors_configured", "api", "mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	} else {
		logging.SecurityEvent("cors_configured", "api", "mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	}
	logging.ServerStartup("query_api", "http", s.cfg.Port, "websocket_protocol", "ws",
		"render_cache", s.cfg.CacheSize)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Shutdown does not wait for hijacked connections.
	s.hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Info("server stopped")
	return nil
}
