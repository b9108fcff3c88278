package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/truthlens/internal/pipeline"
	"github.com/ppiankov/truthlens/internal/server"
	"github.com/ppiankov/truthlens/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the TruthLens HTTP API.

Endpoints:
  POST   /api/analyze-content         credibility analysis only
  POST   /api/verify-with-perplexity  web fact-check only
  POST   /api/check                   full check, saved to history
  GET    /api/state                   current check state
  POST   /api/reset                   clear the current result
  GET    /api/history                 past checks, newest first
  GET    /api/history/:id             one past check
  DELETE /api/history/:id             delete one past check
  DELETE /api/history                 clear history
  POST   /api/history/:id/select      show a past check as current
  GET    /api/health                  liveness

Example:
  truthlens serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().String("cors-origin", "", "Access-Control-Allow-Origin value (default *)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.cors_origin", serveCmd.Flags().Lookup("cors-origin"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var limiter *worker.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = worker.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}

	srv := server.New(server.Options{
		Analyzer:     a.analyzer,
		Verifier:     a.verifier,
		Orchestrator: pipeline.NewOrchestrator(a.runner, logger, a.observers()...),
		History:      a.history,
		Limiter:      limiter,
		CORSOrigin:   cfg.Server.CORSOrigin,
		Version:      Version,
		Logger:       logger,
	})

	logger.Info("starting truthlens",
		"version", Version,
		"analysis", cfg.Analysis.Provider,
		"verification", a.verifier != nil,
		"history", cfg.History.Backend,
	)
	return srv.Run(ctx, cfg.Server.Addr)
}
