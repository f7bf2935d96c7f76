// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rossoflix/rossoflix/internal/api/handlers"
	"github.com/rossoflix/rossoflix/internal/api/middleware"
	"github.com/rossoflix/rossoflix/internal/cache"
	"github.com/rossoflix/rossoflix/internal/config"
	"github.com/rossoflix/rossoflix/internal/gateway"
	"github.com/rossoflix/rossoflix/internal/metrics"
	"github.com/rossoflix/rossoflix/internal/stream"
	"github.com/rossoflix/rossoflix/internal/upstream"
)

type Dependencies struct {
	Config    *config.AppConfig
	Gateway   *gateway.Service
	Responder *stream.Responder
	Cache     *cache.Cache
	OMDB      *upstream.OMDB
	Torrentio *upstream.Torrentio
	Metrics   *metrics.MetricsManager
}

type Server struct {
	server *http.Server
	logger zerolog.Logger
	deps   *Dependencies
}

func NewServer(deps *Dependencies) *Server {
	s := &Server{
		logger: log.Logger.With().Str("module", "api").Logger(),
		deps:   deps,
	}

	cfg := deps.Config.Config
	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: streams and first-time downloads run for minutes.
	}

	return s
}

func (s *Server) ListenAndServe() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	s.server.Handler = handler

	s.logger.Info().Str("address", s.server.Addr).Msg("Starting API server")
	return s.server.ListenAndServe()
}

func (s *Server) Serve(ln net.Listener) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	s.server.Handler = handler
	return s.server.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler builds the router. Compression applies to JSON routes only; the
// stream route must pass bytes and Range headers through untouched.
func (s *Server) Handler() (*chi.Mux, error) {
	compressor, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, fmt.Errorf("failed to create compression adapter: %w", err)
	}

	cfg := s.deps.Config.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Range", "Content-Type", "Accept"},
		ExposedHeaders: []string{"Content-Range", "Accept-Ranges", "Content-Length"},
		MaxAge:         300,
	}).Handler)

	healthHandler := handlers.NewHealthHandler(s.deps.Gateway.Root(), cfg.DownloadBinary)
	versionHandler := handlers.NewVersionHandler()
	metadataHandler := handlers.NewMetadataHandler(s.deps.Cache, s.deps.OMDB, s.deps.Torrentio, s.deps.Config.CacheTTL())
	streamHandler := handlers.NewStreamHandler(s.deps.Gateway, s.deps.Responder, s.deps.Metrics)

	routes := func(r chi.Router) {
		r.Route("/health", healthHandler.Routes)

		r.Group(func(r chi.Router) {
			r.Use(compressor)
			r.Get("/version", versionHandler.GetVersion)
			metadataHandler.Routes(r)
		})

		r.Get("/stream", streamHandler.ServeStream)
		r.Head("/stream", streamHandler.ServeStream)
		r.Get("/stream-torrent", streamHandler.ServeStream)
		r.Head("/stream-torrent", streamHandler.ServeStream)
	}

	if baseURL := strings.TrimRight(cfg.BaseURL, "/"); baseURL != "" {
		r.Route(baseURL, routes)
	} else {
		routes(r)
	}

	return r, nil
}
