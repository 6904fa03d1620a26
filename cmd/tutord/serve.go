package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/config"
	httpapi "github.com/fyrsmithlabs/tutord/internal/http"
	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/services"
	"github.com/fyrsmithlabs/tutord/internal/telemetry"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tutord HTTP server",
	Long: `Start the HTTP server the tutoring UI talks to.

The server exposes session management, ingestion, course generation,
the placement quiz, and the tutor chat under /api/v1, plus /health and
/metrics. With ingest.watch enabled, the source directory is watched
and re-ingested whenever files change.

Examples:
  # Start with the default tutord.yaml
  tutord serve

  # Start against another workspace
  TUTORD_WORKSPACE_DIR=/srv/tutor tutord serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	// Initialize telemetry (no-op unless enabled)
	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	// Initialize logger
	logger, err := logging.NewLogger(&cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "starting tutord",
		zap.String("version", version),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.String("workspace", cfg.Workspace.Dir))

	// Setup signal handler for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info(ctx, "received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	// Initialize business services
	registry, err := services.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		_ = registry.Close()
	}()

	// Create HTTP server
	srv, err := httpapi.NewServer(httpapi.Deps{
		Session:  registry.Session(),
		Ingest:   registry.Ingest(),
		Runner:   registry.Runner(),
		Quiz:     registry.Quiz(),
		Chat:     registry.Chat(),
		Readier:  registry.Readier(),
		DeckFile: cfg.Course.DeckFile,
	}, logger, &cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	// Register metrics endpoint
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Watch the source directory when enabled; changes re-run
	// ingestion and the vector sync in the background.
	if cfg.Ingest.Watch {
		watcher, err := ingest.NewWatcher(&cfg.Ingest, func(ctx context.Context) {
			if err := registry.Readier().EnsureReady(ctx); err != nil {
				logger.Warn(ctx, "re-ingestion after source change failed", zap.Error(err))
			}
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer watcher.Stop()
	}

	logger.Info(ctx, "server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server; Start blocks until Shutdown or a listen error.
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	logger.Info(context.Background(), "shutdown complete")
	return nil
}
