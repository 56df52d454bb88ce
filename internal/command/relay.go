package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/nkalupahana/digital-intercom/internal/metrics"
	"github.com/nkalupahana/digital-intercom/internal/protocol"
)

// RelayConfig contains command relay configuration
type RelayConfig struct {
	ListenAddress string
}

// Relay forwards commands typed on a console to the connected intercom.
// It serves one intercom connection at a time.
type Relay struct {
	config   RelayConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
	listener net.Listener

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// NewRelay creates a new relay. Listen must be called before Serve.
func NewRelay(cfg RelayConfig, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		config:  cfg,
		logger:  logger,
		metrics: m,
	}
}

// Listen binds the TCP listener
func (r *Relay) Listen() error {
	listener, err := net.Listen("tcp", r.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on TCP: %w", err)
	}
	r.listener = listener

	r.logger.Info("Command relay started", slog.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen
func (r *Relay) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Serve accepts intercom connections and forwards console commands to them
// until the console reaches EOF or ctx is cancelled. A failed write drops the
// connection and the relay waits for the next one.
func (r *Relay) Serve(ctx context.Context, console io.Reader) error {
	if r.listener == nil {
		return fmt.Errorf("relay is not listening")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
			if ctx.Err() == nil {
				return
			}
		}
		if err := r.Close(); err != nil {
			r.logger.Warn("Error closing relay", slog.String("error", err.Error()))
		}
	}()

	lines := make(chan string)
	go scanLines(console, lines, stop)

	for {
		r.logger.Info("Waiting for intercom connection")
		conn, err := r.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || r.isClosed() {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		r.setConn(conn)
		r.metrics.RecordRelayConnection()
		r.logger.Info("Intercom connected", slog.String("remote_addr", conn.RemoteAddr().String()))

		consoleDone := r.forward(ctx, conn, lines)
		r.dropConn(conn)

		if consoleDone || ctx.Err() != nil {
			return nil
		}
	}
}

// forward relays console lines to conn. It reports whether the console is exhausted.
func (r *Relay) forward(ctx context.Context, conn net.Conn, lines <-chan string) bool {
	for {
		var line string
		select {
		case <-ctx.Done():
			return false
		case l, ok := <-lines:
			if !ok {
				r.logger.Info("Console closed")
				return true
			}
			line = strings.TrimSpace(l)
		}

		cmd, err := protocol.ParseCommandLine(line)
		if err != nil {
			reason := "unknown"
			if errors.Is(err, protocol.ErrInvalidLength) {
				reason = "length"
			}
			r.metrics.RecordCommandRejected(reason)
			r.logger.Warn("Rejected console input",
				slog.String("input", line),
				slog.String("error", err.Error()),
			)
			continue
		}

		if _, err := conn.Write([]byte{byte(cmd)}); err != nil {
			r.logger.Error("Failed to send command",
				slog.String("command", cmd.String()),
				slog.String("remote_addr", conn.RemoteAddr().String()),
				slog.String("error", err.Error()),
			)
			return false
		}

		r.metrics.RecordCommandSent(cmd.String())
		r.logger.Info("Sent command", slog.String("command", cmd.String()))
	}
}

// Close stops the listener and drops the active connection
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var result *multierror.Error
	if r.listener != nil {
		if err := r.listener.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close listener: %w", err))
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, fmt.Errorf("failed to close connection: %w", err))
		}
		r.conn = nil
	}

	return result.ErrorOrNil()
}

func (r *Relay) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Relay) setConn(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conn = conn
}

func (r *Relay) dropConn(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		r.logger.Warn("Error closing intercom connection", slog.String("error", err.Error()))
	}
	if r.conn == conn {
		r.conn = nil
	}
}

// scanLines feeds console lines to out and closes it at EOF
func scanLines(console io.Reader, out chan<- string, stop <-chan struct{}) {
	defer close(out)

	scanner := bufio.NewScanner(console)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-stop:
			return
		}
	}
}
