// Package server exposes an engine over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /api/tables                      ?undefined=1 | ?empty=1
//	GET    /api/tables/:table/rows          ?criteria= &sort= &offset= &limit= &source=
//	PUT    /api/pages/*title                body: page text
//	DELETE /api/pages/*title
//	POST   /api/refresh                     ?limit=
//
// Query errors are reported as 400 with the message the query produced.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/wikidb/internal/engine"
)

// DefaultRowLimit is the page size of row listings without a limit.
const DefaultRowLimit = 50

// Server serves the HTTP API.
type Server struct {
	e         *engine.Engine
	refresher *engine.Refresher
	log       *slog.Logger
	router    *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithRefresher makes page writes trigger r.
func WithRefresher(r *engine.Refresher) Option {
	return func(s *Server) { s.refresher = r }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a server for e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{e: e, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", HealthHandler(s.e))

	api := r.Group("/api")
	{
		api.GET("/tables", TablesHandler(s.e))
		api.GET("/tables/:table/rows", RowsHandler(s.e))
		api.PUT("/pages/*title", PutPageHandler(s.e, s.refresher))
		api.DELETE("/pages/*title", DeletePageHandler(s.e, s.refresher))
		api.POST("/refresh", RefreshHandler(s.e))
	}
	return r
}

// requestLog logs each request at debug level, and failures at warn.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.log.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
