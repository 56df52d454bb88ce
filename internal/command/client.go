package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/nkalupahana/digital-intercom/internal/metrics"
	"github.com/nkalupahana/digital-intercom/internal/protocol"
)

// ClientConfig contains command client configuration
type ClientConfig struct {
	Address       string
	RetryInterval time.Duration
	DialTimeout   time.Duration
}

// Handler receives every valid command read from the relay
type Handler func(protocol.Command)

// Client plays the intercom's side of the command link. It keeps a
// connection to the relay open, reconnecting forever.
type Client struct {
	config  ClientConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	handler Handler
}

// NewClient creates a new command client
func NewClient(cfg ClientConfig, logger *slog.Logger, m *metrics.Metrics, handler Handler) *Client {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	return &Client{
		config:  cfg,
		logger:  logger,
		metrics: m,
		handler: handler,
	}
}

// Run connects to the relay and dispatches commands until ctx is cancelled.
// A dial failure is retried after RetryInterval. An unknown command or a
// closed connection triggers an immediate reconnect.
func (c *Client) Run(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.config.DialTimeout}

	for {
		c.logger.Info("Connecting to relay", slog.String("address", c.config.Address))
		conn, err := dialer.DialContext(ctx, "tcp", c.config.Address)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("Unable to connect to relay",
				slog.String("address", c.config.Address),
				slog.String("error", err.Error()),
			)
			c.metrics.RecordClientReconnect()

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.config.RetryInterval):
			}
			continue
		}

		c.logger.Info("Connected to relay", slog.String("address", c.config.Address))
		err = c.receive(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("Relay connection lost, reconnecting", slog.String("error", err.Error()))
		c.metrics.RecordClientReconnect()
	}
}

// receive reads commands from conn until it fails. It always returns a non-nil error.
func (c *Client) receive(ctx context.Context, conn net.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	buf := make([]byte, protocol.CommandSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("relay closed the connection")
			}
			return fmt.Errorf("failed to read command: %w", err)
		}

		cmd, err := protocol.ParseCommand(buf[0])
		if err != nil {
			return err
		}

		c.logger.Info("Received command", slog.String("command", cmd.String()))
		if c.handler != nil {
			c.handler(cmd)
		}
	}
}
