// SPDX-License-Identifier: MIT

// Package api provides the HTTP surface for serve mode: artifact downloads,
// status, refresh trigger, health and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chasut/eplustv-ah4c/internal/config"
	"github.com/chasut/eplustv-ah4c/internal/jobs"
	"github.com/chasut/eplustv-ah4c/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	cfg       *config.Config
	runner    *jobs.Runner
	store     *store.Store
	startTime time.Time
	srv       *http.Server
}

// New constructs the server; call Start to begin listening.
func New(cfg *config.Config, runner *jobs.Runner, st *store.Store) *Server {
	s := &Server{
		cfg:       cfg,
		runner:    runner,
		store:     st,
		startTime: time.Now(),
	}
	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler assembles the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/playlist.m3u", s.handleArtifact(jobs.PlaylistFile, "audio/x-mpegurl"))
	r.Get("/guide.xml", s.handleArtifact(jobs.GuideFile, "application/xml; charset=utf-8"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.With(httprate.LimitByIP(6, time.Minute)).
			Post("/refresh", s.handleRefresh)
	})

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Start listens until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
