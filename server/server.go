// Package server exposes the chunking engine over HTTP. The API is
// deliberately small: one endpoint per engine entry point, a health probe,
// and Prometheus metrics exposition.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chunkforge/chunkforge/engine/chunk"
	"github.com/chunkforge/chunkforge/pkg/config"
	"github.com/chunkforge/chunkforge/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Server hosts the HTTP API over a shared Splitter.
type Server struct {
	cfg      *config.ServerConfig
	splitter *chunk.Splitter
	http     *http.Server
}

// New validates the collaborators and prepares the HTTP server. Run starts it.
func New(cfg *config.ServerConfig, splitter *chunk.Splitter) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if splitter == nil {
		return nil, errors.New("server: splitter is required")
	}
	s := &Server{cfg: cfg, splitter: splitter}
	metricsHandler, err := newMetricsHandler()
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(metricsHandler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Timeout,
		WriteTimeout:      cfg.Timeout,
	}
	return s, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

func (s *Server) buildRouter(metricsHandler http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	if s.cfg.CORSEnabled {
		router.Use(corsMiddleware())
	}

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(metricsHandler))

	api := router.Group("/api/v1")
	api.POST("/chunk", s.handleChunk)
	api.POST("/chunk/batch", s.handleChunkBatch)
	return router
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: listen on %s: %w", s.http.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return <-errCh
}
