package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkalupahana/digital-intercom/internal/audio"
	"github.com/nkalupahana/digital-intercom/internal/metrics"
)

// Config contains capturer configuration
type Config struct {
	ListenAddress string
	BufferSize    int           // bytes per datagram read
	PollInterval  time.Duration // how often an idle receive returns to check for cancellation
	SampleRate    int
	OutputPath    string
}

// Capturer receives raw sample datagrams from the intercom and turns a
// capture into a WAV file
type Capturer struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	conn    *net.UDPConn

	// Statistics shared with the HTTP API; the sample stream itself never is
	stats      Statistics
	lastResult *Result
	mu         sync.RWMutex
}

// Statistics represents capture progress for monitoring
type Statistics struct {
	CaptureID          string    `json:"capture_id,omitempty"`
	Running            bool      `json:"running"`
	StartedAt          time.Time `json:"started_at,omitempty"`
	DatagramsReceived  uint64    `json:"datagrams_received"`
	DatagramsTruncated uint64    `json:"datagrams_truncated"`
	BytesReceived      uint64    `json:"bytes_received"`
	SamplesCaptured    uint64    `json:"samples_captured"`
}

// NewCapturer creates a new capturer. Listen must be called before Run.
func NewCapturer(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Capturer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.SampleRate
	}

	return &Capturer{
		config:  cfg,
		logger:  logger,
		metrics: m,
	}
}

// Listen binds the UDP socket
func (c *Capturer) Listen() error {
	addr, err := net.ResolveUDPAddr("udp", c.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}
	c.conn = conn

	if err := conn.SetReadBuffer(c.config.BufferSize); err != nil {
		c.logger.Warn("Failed to set UDP read buffer", slog.String("error", err.Error()))
	}

	c.logger.Info("Capture listener started",
		slog.String("address", conn.LocalAddr().String()),
		slog.Int("buffer_size", c.config.BufferSize),
	)

	return nil
}

// LocalAddr returns the bound address, or nil before Listen
func (c *Capturer) LocalAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// Close releases the UDP socket. A Run in progress fails with a receive error.
func (c *Capturer) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close UDP listener: %w", err)
	}
	return nil
}

// Run collects samples until ctx is cancelled and returns the frozen stream.
// Cancellation is observed between receives; any receive failure other than
// the poll deadline ends the capture with an error.
func (c *Capturer) Run(ctx context.Context) (*audio.SampleStream, error) {
	return c.run(ctx, uuid.New().String())
}

func (c *Capturer) run(ctx context.Context, captureID string) (*audio.SampleStream, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("capturer is not listening")
	}

	logger := c.logger.With(slog.String("capture_id", captureID))
	stream := audio.NewSampleStream(c.config.SampleRate)
	buffer := make([]byte, c.config.BufferSize)

	c.mu.Lock()
	c.stats = Statistics{CaptureID: captureID, Running: true, StartedAt: time.Now()}
	c.mu.Unlock()
	c.metrics.SetCaptureActive(true)

	defer func() {
		stream.Freeze()
		c.mu.Lock()
		c.stats.Running = false
		c.mu.Unlock()
		c.metrics.SetCaptureActive(false)
	}()

	logger.Info("Capture started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Capture stopped",
				slog.Int("samples", stream.Len()),
				slog.Uint64("datagrams", stream.Stats().Datagrams),
			)
			return stream, nil
		default:
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(c.config.PollInterval)); err != nil {
			return stream, fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, remoteAddr, err := c.conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			logger.Error("Failed to receive datagram", slog.String("error", err.Error()))
			return stream, fmt.Errorf("failed to receive datagram: %w", err)
		}

		added, truncated, err := stream.AppendDatagram(buffer[:n])
		if err != nil {
			return stream, fmt.Errorf("failed to append datagram: %w", err)
		}

		c.mu.Lock()
		c.stats.DatagramsReceived++
		c.stats.BytesReceived += uint64(n)
		c.stats.SamplesCaptured += uint64(added)
		if truncated {
			c.stats.DatagramsTruncated++
		}
		c.mu.Unlock()
		c.metrics.RecordDatagram(n, added, truncated)

		if truncated {
			logger.Debug("Dropped trailing byte of odd-length datagram",
				slog.String("remote_addr", remoteAddr.String()),
				slog.Int("datagram_size", n),
			)
		}
	}
}

// GetStatistics returns the statistics of the current or most recent capture
func (c *Capturer) GetStatistics() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// LastResult returns the most recent successful capture, if any
func (c *Capturer) LastResult() (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastResult, c.lastResult != nil
}
