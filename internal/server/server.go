// Package server exposes the matching pipeline over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kass/roadmatch/internal/config"
	"github.com/kass/roadmatch/internal/metrics"
	"github.com/kass/roadmatch/pkg/matcher"
)

const shutdownTimeout = 10 * time.Second

// Server serves the matching API. Road polylines come from the configured
// RoadSource unless a request carries its own roads.
type Server struct {
	cfg      config.ServerConfig
	matching matcher.ProcessorConfig
	source   matcher.RoadSource
	observer matcher.Observer
	logger   *slog.Logger
	engine   *gin.Engine
}

// Option configures a Server
type Option func(*Server)

// WithObserver reports pipeline statistics of every request to o
func WithObserver(o matcher.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server. source may be nil, in which case every request has
// to provide its roads inline.
func New(cfg config.ServerConfig, matching matcher.ProcessorConfig, source matcher.RoadSource, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		matching: matching,
		source:   source,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is done, then shuts the
// server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("server listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), countRequests(), limitBody(s.cfg.MaxBodyBytes))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	if s.cfg.JWTSecret != "" {
		api.Use(requireToken([]byte(s.cfg.JWTSecret)))
	}
	{
		api.POST("/match", s.match)
		api.POST("/match/gpx", s.matchGPX)
		api.POST("/snap", s.snap)
	}
	return r
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func limitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
