// Package http serves the loan eligibility API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxUploadBytes int64
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 32 << 20,
	}
}

func NewServer(config ServerConfig, api *API) *Server {
	logger := api.logger

	apiMux := http.NewServeMux()
	api.Register(apiMux)
	apiHandler := Chain(
		TimeoutMiddleware(config.Timeout),
		RequestSizeMiddleware(config.MaxUploadBytes),
	)(apiMux)

	root := http.NewServeMux()
	if api.hub != nil {
		root.HandleFunc("GET /api/ws/events", api.hub.HandleWebSocket)
	}
	root.Handle("/", apiHandler)

	chain := Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger, api.metrics),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
	)

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           chain(root),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		config: config,
		logger: logger,
	}
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting http server",
		zap.String("addr", s.server.Addr),
		zap.String("events", fmt.Sprintf("ws://localhost%s/api/ws/events", s.server.Addr)),
	)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Addr() string {
	return s.server.Addr
}
