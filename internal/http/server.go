// Package http exposes the embedding, vector store and RAG operations over
// a JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragcore/internal/embeddings"
	"github.com/fyrsmithlabs/ragcore/internal/logging"
	"github.com/fyrsmithlabs/ragcore/internal/rag"
	"github.com/fyrsmithlabs/ragcore/internal/sanitize"
	"github.com/fyrsmithlabs/ragcore/internal/vectorstore"
)

const defaultShutdownTimeout = 10 * time.Second

// Deps are the services the server routes requests to. Advanced and
// Sanitizer are optional; their routes answer 503 when absent.
type Deps struct {
	Embedder  embeddings.Provider
	Store     vectorstore.Store
	RAG       *rag.Service
	Advanced  *rag.AdvancedService
	Sanitizer sanitize.Sanitizer
	Logger    *logging.Logger
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	deps    Deps
	logger  *logging.Logger
	config  *Config
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, cfg *Config) (*Server, error) {
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if deps.RAG == nil {
		return nil, fmt.Errorf("rag service cannot be nil")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		deps:    deps,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(logger.Underlying()),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	})

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")
	v1.GET("/status", s.handleStatus)

	v1.POST("/embed", s.handleEmbed)

	v1.POST("/vectors", s.handleStoreVector)
	v1.POST("/vectors/search", s.handleSearchVectors)
	v1.GET("/vectors/:id", s.handleGetVector)
	v1.DELETE("/vectors/:id", s.handleDeleteVector)
	v1.DELETE("/vectors", s.handleClearVectors)

	v1.POST("/documents", s.handleIndex)
	v1.DELETE("/documents/:type/:id", s.handleRemove)

	v1.POST("/search", s.handleSearch)
	v1.POST("/retrieve", s.handleRetrieve)
	v1.POST("/retrieve/advanced", s.handleRetrieveAdvanced)

	v1.POST("/sanitize/analyze", s.handleAnalyze)
}

// Echo returns the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves until ctx is cancelled or the listener fails, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(ctx, "starting http server", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
