package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/nkalupahana/digital-intercom/internal/audio"
)

// Result describes a capture written to disk
type Result struct {
	CaptureID    string        `json:"capture_id"`
	OutputPath   string        `json:"output_path"`
	Frames       int           `json:"frames"`
	BytesWritten uint64        `json:"bytes_written"`
	Summary      audio.Summary `json:"summary"`
	WAV          audio.WAVInfo `json:"wav"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// Record runs a capture until ctx is cancelled, then normalizes the samples
// and writes them to the configured output path. Nothing is written if the
// capture is empty, flat, or ended with a receive error.
func (c *Capturer) Record(ctx context.Context) (*Result, error) {
	captureID := uuid.New().String()
	logger := c.logger.With(slog.String("capture_id", captureID))
	startedAt := time.Now()

	stream, err := c.run(ctx, captureID)
	if err != nil {
		c.metrics.RecordCaptureFailure("receive")
		return nil, fmt.Errorf("capture %s failed: %w", captureID, err)
	}

	summary := audio.Summarize(stream.Samples(), c.config.SampleRate)
	logger.Info("Capture summary",
		slog.Int("samples", summary.Samples),
		slog.Int("min", int(summary.Min)),
		slog.Int("max", int(summary.Max)),
		slog.Float64("mean", summary.Mean),
		slog.Float64("std_dev", summary.StdDev),
		slog.Duration("duration", summary.Duration),
	)

	normalized, err := audio.NormalizeStream(stream)
	if err != nil {
		c.metrics.RecordCaptureFailure(failureReason(err))
		logger.Error("Failed to normalize capture", slog.String("error", err.Error()))
		return nil, fmt.Errorf("capture %s: %w", captureID, err)
	}

	written, err := audio.WriteWAVFile(c.config.OutputPath, normalized, c.config.SampleRate)
	if err != nil {
		c.metrics.RecordCaptureFailure("write")
		logger.Error("Failed to write capture",
			slog.String("output_path", c.config.OutputPath),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("capture %s: %w", captureID, err)
	}

	info, err := audio.VerifyWAVFile(c.config.OutputPath, len(normalized), c.config.SampleRate)
	if err != nil {
		c.metrics.RecordCaptureFailure("verify")
		logger.Error("Written capture failed verification",
			slog.String("output_path", c.config.OutputPath),
			slog.String("error", err.Error()),
		)
		if removeErr := os.Remove(c.config.OutputPath); removeErr != nil {
			logger.Warn("Failed to remove unverified capture", slog.String("error", removeErr.Error()))
		}
		return nil, fmt.Errorf("capture %s: %w", captureID, err)
	}

	result := &Result{
		CaptureID:    captureID,
		OutputPath:   c.config.OutputPath,
		Frames:       len(normalized),
		BytesWritten: written,
		Summary:      summary,
		WAV:          *info,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
	}

	c.mu.Lock()
	c.lastResult = result
	c.mu.Unlock()
	c.metrics.RecordCaptureWritten(summary.Duration.Seconds(), written)

	logger.Info("Capture written",
		slog.String("output_path", result.OutputPath),
		slog.Int("frames", result.Frames),
		slog.Uint64("bytes_written", result.BytesWritten),
		slog.Float64("duration_seconds", info.Duration),
	)

	return result, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, audio.ErrEmptyCapture):
		return "empty"
	case errors.Is(err, audio.ErrFlatCapture):
		return "flat"
	default:
		return "normalize"
	}
}
