package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/slipcheck/internal/api"
	"github.com/eshaffer321/slipcheck/internal/api/handlers"
	"github.com/eshaffer321/slipcheck/internal/application/reconcile"
)

func serveCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default from config or $PORT, 8085)")
	return cmd
}

// runServe runs the API server until ctx is cancelled.
func runServe(ctx context.Context, a *app) error {
	store, logger, err := a.open(ctx, "api")
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tol, err := a.cfg.Matching.Tolerances()
	if err != nil {
		return err
	}
	apiCfg := api.Config{
		Port:           a.cfg.Server.Port,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Defaults: handlers.Defaults{
			Tolerances:    tol,
			Limit:         a.cfg.Matching.Limit,
			AutoReconcile: a.cfg.Reconcile.AutoReconcile,
			CallerID:      a.cfg.Reconcile.CallerID,
		},
	}

	reconciler := reconcile.NewReconciler(store, a.logger("reconcile"))
	server := api.NewServer(apiCfg, reconciler, store, logger)

	// Handle graceful shutdown
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
