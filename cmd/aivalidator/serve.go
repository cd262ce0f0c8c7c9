package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vezlo/ai-validator/internal/config"
	httpserver "github.com/vezlo/ai-validator/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the validation HTTP API",
	Long: `Start the HTTP API:

  POST /api/v1/validate   validate one response
  GET  /health            liveness
  GET  /metrics           Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (overrides server.host)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.http_port)")
	addCheckFlags(serveCmd.Flags())
}

// runServe starts the server and blocks until a shutdown signal arrives.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, func(cmd *cobra.Command, cfg *config.Config) error {
		if err := applyCheckFlags(cmd, cfg); err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := httpserver.NewServer(a.validator, a.logger, &httpserver.Config{
		Host: a.cfg.Server.Host,
		Port: a.cfg.Server.Port,
	}, httpserver.WithTelemetry(a.telemetry))
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	a.logger.Info(ctx, "starting aivalidator",
		zap.String("version", version),
		zap.String("addr", srv.Addr()),
		zap.Duration("shutdown_timeout", a.cfg.Server.ShutdownTimeout.Duration()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("http server failed: %w", err)
	}
	a.logger.Info(context.Background(), "server shutdown complete")
	return nil
}
