// Package api exposes the reconciliation engine over HTTP
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/forecast-recon/pkg/application/services"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/container"
)

// Server is the HTTP front end of a container
type Server struct {
	app        *container.Container
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the router for app
func NewServer(app *container.Container) *Server {
	cfg := app.Config
	handlers := NewHandlers(
		app.Queries,
		app.Datasets,
		app.Repository,
		app.Events,
		cfg.DefaultQuery(),
		services.ExportOptions{
			Delimiter:    cfg.Normalization.ItemDelimiter,
			DefaultColor: cfg.Normalization.DefaultColor,
		},
		app.Logger,
	)

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(app.Logger))
	router.Use(LoggerMiddleware(app.Logger))
	if cfg.Server.Gzip {
		router.Use(GzipMiddleware())
	}

	router.GET("/healthz", handlers.Health)

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateBurst))
	{
		v1.GET("/catalog", handlers.Catalog)
		v1.POST("/query", handlers.Query)
		v1.POST("/export", handlers.Export)
		v1.POST("/dataset/reload", handlers.Reload)
	}

	return &Server{
		app:    app,
		router: router,
		logger: app.Logger,
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
