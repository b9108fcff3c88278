// Package server exposes the credibility checker over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/ppiankov/truthlens/internal/history"
	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/pipeline"
	"github.com/ppiankov/truthlens/internal/worker"
)

// limiterIdle is how long a client bucket may sit unused before it is pruned
const limiterIdle = 10 * time.Minute

// Options wires the server to the rest of the application
type Options struct {
	Analyzer     pipeline.Analyzer
	Verifier     pipeline.Verifier // nil when verification is disabled
	Orchestrator *pipeline.Orchestrator
	History      *history.Store
	Limiter      *worker.Limiter // nil disables per-client limiting
	CORSOrigin   string
	Version      string
	Logger       *log.Logger
}

// Server is the TruthLens HTTP API
type Server struct {
	opts       Options
	logger     *log.Logger
	engine     *gin.Engine
	httpServer *http.Server
	cron       *cron.Cron
}

// New builds the router. Call Run to start listening.
func New(opts Options) *Server {
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}

	s := &Server{
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
		cron:   cron.New(),
	}
	s.engine = s.newRouter()
	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors(s.opts.CORSOrigin))

	r.GET("/api/health", s.handleHealth)

	api := r.Group("/api")
	if s.opts.Limiter != nil {
		api.Use(rateLimit(s.opts.Limiter))
	}

	api.POST("/analyze-content", s.handleAnalyze)
	api.POST("/verify-with-perplexity", s.handleVerify)

	api.POST("/check", s.handleCheck)
	api.GET("/state", s.handleState)
	api.POST("/reset", s.handleReset)

	api.GET("/history", s.handleHistoryList)
	api.DELETE("/history", s.handleHistoryClear)
	api.GET("/history/:id", s.handleHistoryGet)
	api.DELETE("/history/:id", s.handleHistoryDelete)
	api.POST("/history/:id/select", s.handleHistorySelect)

	// global middleware also runs here, so preflight succeeds on any path
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.opts.Limiter != nil {
		limiter := s.opts.Limiter
		if _, err := s.cron.AddFunc("@every 5m", func() {
			if n := limiter.Prune(limiterIdle); n > 0 {
				s.logger.Debug("pruned idle client limiters", "count", n)
			}
		}); err != nil {
			return fmt.Errorf("schedule limiter pruning: %w", err)
		}
		s.cron.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.cron.Stop()
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the pruning schedule and the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	<-s.cron.Stop().Done()

	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
