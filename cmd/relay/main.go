package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/nkalupahana/digital-intercom/internal/command"
	"github.com/nkalupahana/digital-intercom/internal/config"
	"github.com/nkalupahana/digital-intercom/internal/logging"
	"github.com/nkalupahana/digital-intercom/internal/metrics"
	"github.com/nkalupahana/digital-intercom/internal/server"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := pflag.String("config", defaultConfigPath, "Path to configuration file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(cfg.Logging)
	defer logCloser.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("Relay failed", slog.String("error", err.Error()))
		logCloser.Close()
		os.Exit(1)
	}

	logger.Info("Relay stopped")
}

func run(cfg *config.Config, logger *slog.Logger) (err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(reg)

	relay := command.NewRelay(command.RelayConfig{
		ListenAddress: cfg.Command.ListenAddress(),
	}, logger, appMetrics)

	if err := relay.Listen(); err != nil {
		return err
	}
	defer func() {
		if closeErr := relay.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to close relay: %w", closeErr))
		}
	}()

	if cfg.HTTP.Enabled {
		httpServer := server.NewMetricsServer(cfg.HTTP.WithPort(cfg.HTTP.RelayPort), logger, cfg, appMetrics)
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if stopErr := httpServer.Stop(shutdownCtx); stopErr != nil {
				err = multierror.Append(err, fmt.Errorf("failed to stop HTTP server: %w", stopErr))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(os.Stderr, "Commands: D open door, L listen on, S listen stop, T talk on")

	return relay.Serve(ctx, os.Stdin)
}
