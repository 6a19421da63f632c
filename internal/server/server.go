// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

// Package server exposes the engine's state over a read-only HTTP
// surface. There are deliberately no control endpoints: waking the host
// back up belongs to the separate WoL gateway, and shutdown decisions
// belong to the engine alone.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/idlewatch-dev/idlewatch/internal/engine"
	"github.com/idlewatch-dev/idlewatch/pkg/health"
)

// SnapshotSource yields the engine snapshot served by the status
// endpoint.
type SnapshotSource interface {
	Snapshot() engine.Snapshot
}

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps a chi router with a huma API and HTTP server.
type Server struct {
	router chi.Router
	api    huma.API
	cfg    Config
	source SnapshotSource
}

// New creates a Server with chi router, huma API, health and status
// endpoints, and CORS.
func New(cfg Config, source SnapshotSource) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if source == nil {
		return nil, fmt.Errorf("snapshot source is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	humaConfig := huma.DefaultConfig("Idlewatch Monitor", "0.1.0")
	humaConfig.Info.Description = "Inactivity auto-shutdown monitor status API"
	api := humachi.New(r, humaConfig)

	srv := &Server{
		router: r,
		api:    api,
		cfg:    cfg,
		source: source,
	}

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return &HealthResponse{Body: HealthBody{Status: "ok"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Engine status",
		Description: "Current inactivity timer state, last round verdict, and per-probe health.",
		Tags:        []string{"system"},
	}, srv.handleStatus)

	return srv, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return <-errCh
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

// ShutdownBody describes the most recent shutdown attempt.
type ShutdownBody struct {
	ID             string `json:"id" doc:"Shutdown event ID"`
	TriggeredAt    string `json:"triggered_at" doc:"RFC3339 timestamp of the attempt"`
	ElapsedSeconds int64  `json:"elapsed_seconds" doc:"Inactive seconds at trigger time"`
	Outcome        string `json:"outcome" enum:"success,failure" doc:"Result of the power-off command"`
}

// StatusBody is the JSON body of the status endpoint response.
type StatusBody struct {
	State            string                    `json:"state" enum:"active,counting" doc:"Timer state"`
	Round            uint64                    `json:"round" doc:"Completed polling rounds"`
	ElapsedSeconds   int64                     `json:"elapsed_seconds" doc:"Continuous inactive seconds"`
	ThresholdSeconds int64                     `json:"threshold_seconds" doc:"Shutdown threshold in seconds"`
	Degraded         bool                      `json:"degraded" doc:"Whether any probe failed last round"`
	ActiveSources    []string                  `json:"active_sources,omitempty" doc:"Probes reporting activity last round"`
	LastRoundAt      string                    `json:"last_round_at,omitempty" doc:"RFC3339 timestamp of the last round"`
	Probes           map[string]health.Metrics `json:"probes" doc:"Per-probe health"`
	LastShutdown     *ShutdownBody             `json:"last_shutdown,omitempty" doc:"Most recent shutdown attempt, if any"`
}

// StatusResponse wraps the status endpoint response.
type StatusResponse struct {
	Body StatusBody
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*StatusResponse, error) {
	snap := s.source.Snapshot()

	body := StatusBody{
		State:            snap.State,
		Round:            snap.Round,
		ElapsedSeconds:   int64(snap.Elapsed / time.Second),
		ThresholdSeconds: int64(snap.Threshold / time.Second),
		Degraded:         snap.LastVerdict.Degraded,
		ActiveSources:    snap.LastVerdict.ActiveSources,
		Probes:           snap.Probes,
	}
	if !snap.LastRoundAt.IsZero() {
		body.LastRoundAt = snap.LastRoundAt.Format(time.RFC3339)
	}
	if snap.LastShutdown != nil {
		body.LastShutdown = &ShutdownBody{
			ID:             snap.LastShutdown.ID.String(),
			TriggeredAt:    snap.LastShutdown.TriggeredAt.Format(time.RFC3339),
			ElapsedSeconds: int64(snap.LastShutdown.Elapsed / time.Second),
			Outcome:        string(snap.LastShutdown.Outcome),
		}
	}

	return &StatusResponse{Body: body}, nil
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}
