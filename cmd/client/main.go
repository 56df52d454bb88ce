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
	"github.com/nkalupahana/digital-intercom/internal/protocol"
	"github.com/nkalupahana/digital-intercom/internal/server"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := pflag.String("config", defaultConfigPath, "Path to configuration file")
	address := pflag.StringP("address", "a", "", "Override the relay address")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Command.RelayAddress = *address
	}

	logger, logCloser := logging.New(cfg.Logging)
	defer logCloser.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("Client failed", slog.String("error", err.Error()))
		logCloser.Close()
		os.Exit(1)
	}

	logger.Info("Client stopped")
}

func run(cfg *config.Config, logger *slog.Logger) (err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(reg)

	if cfg.HTTP.Enabled {
		httpServer := server.NewMetricsServer(cfg.HTTP.WithPort(cfg.HTTP.ClientPort), logger, cfg, appMetrics)
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

	client := command.NewClient(command.ClientConfig{
		Address:       cfg.Command.RelayAddress,
		RetryInterval: cfg.Command.GetRetryInterval(),
	}, logger, appMetrics, func(cmd protocol.Command) {
		fmt.Printf("%c %s\n", byte(cmd), cmd)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return client.Run(ctx)
}
