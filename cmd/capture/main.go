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

	"github.com/nkalupahana/digital-intercom/internal/capture"
	"github.com/nkalupahana/digital-intercom/internal/config"
	"github.com/nkalupahana/digital-intercom/internal/logging"
	"github.com/nkalupahana/digital-intercom/internal/metrics"
	"github.com/nkalupahana/digital-intercom/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "intercom-capture"
)

func main() {
	configPath := pflag.String("config", defaultConfigPath, "Path to configuration file")
	outputPath := pflag.StringP("output", "o", "", "Override the WAV output path")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *outputPath != "" {
		cfg.Audio.OutputPath = *outputPath
	}

	logger, logCloser := logging.New(cfg.Logging)
	defer logCloser.Close()

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("config_path", *configPath),
	)
	logger.Info("Configuration loaded",
		slog.String("listen_address", cfg.Capture.ListenAddress()),
		slog.Int("buffer_size", cfg.Capture.BufferSize),
		slog.Duration("poll_interval", cfg.Capture.GetPollInterval()),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.String("output_path", cfg.Audio.OutputPath),
		slog.String("log_level", cfg.Logging.Level),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("Capture failed", slog.String("error", err.Error()))
		logCloser.Close()
		os.Exit(1)
	}

	logger.Info("Service stopped")
}

func run(cfg *config.Config, logger *slog.Logger) (err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(reg)

	capturer := capture.NewCapturer(capture.Config{
		ListenAddress: cfg.Capture.ListenAddress(),
		BufferSize:    cfg.Capture.BufferSize,
		PollInterval:  cfg.Capture.GetPollInterval(),
		SampleRate:    cfg.Audio.SampleRate,
		OutputPath:    cfg.Audio.OutputPath,
	}, logger, appMetrics)

	if err := capturer.Listen(); err != nil {
		return err
	}
	defer func() {
		if closeErr := capturer.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to close capturer: %w", closeErr))
		}
	}()

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, capturer, appMetrics)
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

	logger.Info("Capturing, press Ctrl+C to stop and write the recording")

	result, err := capturer.Record(ctx)
	if err != nil {
		return err
	}

	logger.Info("Recording saved",
		slog.String("output_path", result.OutputPath),
		slog.Int("frames", result.Frames),
		slog.Uint64("bytes_written", result.BytesWritten),
		slog.Duration("duration", result.Summary.Duration),
	)
	return nil
}
