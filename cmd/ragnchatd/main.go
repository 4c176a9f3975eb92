// Ragnchatd serves the ragnchat HTTP API.
//
// Configuration is loaded from ~/.config/ragnchat/config.yaml and environment
// variables. See internal/config for the keys.
//
// Usage:
//
//	# Start server with defaults
//	ragnchatd
//
//	# Configure via environment
//	SERVER_PORT=9090 VECTORSTORE_PROVIDER=qdrant OPENAI_API_KEY=... ragnchatd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	httpserver "github.com/fyrsmithlabs/ragnchat/internal/http"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/services"
	"github.com/fyrsmithlabs/ragnchat/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  ragnchatd           Start the ragnchat server\n")
			fmt.Fprintf(os.Stderr, "  ragnchatd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printVersion() {
	fmt.Printf("ragnchatd\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts telemetry, the pipelines and the HTTP server, and blocks until
// ctx is cancelled. Shutdown is bounded by server.shutdown_timeout.
func run(ctx context.Context, cfg *config.Config) error {
	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Observability, version))
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("problems", h.Problems))
	}

	logger.Info(ctx, "starting ragnchatd",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("telemetry", tel.IsEnabled()))

	set, err := services.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	srv, err := httpserver.NewServer(set, logger, &httpserver.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Version: version,
	})
	if err != nil {
		_ = set.Close()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	return errors.Join(
		err,
		srv.Shutdown(shutdownCtx),
		set.Close(),
		tel.Shutdown(shutdownCtx),
	)
}

// initLogger builds the logger, bridging to OpenTelemetry when telemetry is
// enabled and a log provider is set.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	lc, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	lp := tel.LoggerProvider()
	lc.Output.OTEL = tel.IsEnabled() && lp != nil
	return logging.NewLogger(lc, lp)
}
