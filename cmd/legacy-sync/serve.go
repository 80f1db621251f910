package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"legacy-sync/internal/http"
)

const shutdownTimeout = 30 * time.Second

var servePort string

// serveCmd starts the operational HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the migration API",
	Long: `Serve the operational HTTP API. Migrations are started with
POST /api/migrations and reported by GET /api/migrations/latest.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(current, cmd)
	},
}

func serve(a *app, cmd *cobra.Command) error {
	ctx := a.commandContext(cmd)

	port := servePort
	if port == "" {
		port = a.cfg.APIPort
	}

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		Migrations: a.runner,
		Records:    a.records,
	})

	server := &nethttp.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		a.logger.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("API server shutdown failed", "error", err)
		}
	}()

	a.logger.InfoContext(ctx, "Starting API server", "addr", server.Addr)
	err := server.ListenAndServe()

	// Stop an active run at its next batch boundary
	a.runner.Close()

	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return fmt.Errorf("API server failed: %w", err)
	}
	a.logger.Info("API server stopped")
	return nil
}
