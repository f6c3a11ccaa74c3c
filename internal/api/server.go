// Package api serves the spend reconciliation engine over JSON/HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/theirongolddev/spendgrid/internal/authz"
	"github.com/theirongolddev/spendgrid/internal/platform"
	"github.com/theirongolddev/spendgrid/internal/reconcile"
	"github.com/theirongolddev/spendgrid/internal/store"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Config controls the API server.
type Config struct {
	Addr           string
	AllowedOrigins []string
	UserHeader     string
	DevUser        string
	Currency       string
	Env            string
	// Quiet disables per-request logging.
	Quiet bool
}

// Server wires the engine, gate and registry to HTTP routes.
type Server struct {
	cfg       Config
	store     store.Store
	gate      *authz.Gate
	engine    *reconcile.Engine
	platforms *platform.Registry
	now       func() time.Time
}

// New returns a Server over s.
func New(cfg Config, s store.Store) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.UserHeader == "" {
		cfg.UserHeader = "X-User-Id"
	}
	if cfg.Env == "" {
		cfg.Env = "local"
	}
	return &Server{
		cfg:       cfg,
		store:     s,
		gate:      authz.NewGate(s),
		engine:    reconcile.NewEngine(s, cfg.Currency),
		platforms: platform.NewRegistry(s),
		now:       time.Now,
	}
}

// Handler returns the routed handler with identity, logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/me", s.handleMe)

	mux.HandleFunc("GET /v1/spend", s.handleListSpend)
	mux.HandleFunc("POST /v1/spend", s.handleCreateSpend)
	mux.HandleFunc("POST /v1/spend/bulk", s.handleBulk)
	mux.HandleFunc("POST /v1/spend/overwrite", s.handleOverwrite)
	mux.HandleFunc("POST /v1/spend/parse", s.handleParse)

	mux.HandleFunc("GET /v1/audit", s.handleAudit)

	mux.HandleFunc("GET /v1/platforms", s.handleListPlatforms)
	mux.HandleFunc("POST /v1/platforms", s.handleCreatePlatform)

	var h http.Handler = mux
	if !s.cfg.Quiet {
		h = logRequests(h)
	}
	h = s.identify(h)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", s.cfg.UserHeader},
	})
	return c.Handler(h)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Printf("spendgrid api listening on %s", s.cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("spendgrid api shutting down")
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("spendgrid http server: %w", err)
	}
}
