package capture

import (
	"context"
	"encoding/binary"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkalupahana/digital-intercom/internal/audio"
	"github.com/nkalupahana/digital-intercom/internal/metrics"
)

func newTestCapturer(t *testing.T) (*Capturer, *metrics.Metrics) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	m := metrics.NewMetrics(prometheus.NewRegistry())
	c := NewCapturer(Config{
		ListenAddress: "127.0.0.1:0",
		BufferSize:    1024,
		PollInterval:  20 * time.Millisecond,
		SampleRate:    audio.SampleRate,
		OutputPath:    filepath.Join(t.TempDir(), "capture.wav"),
	}, logger, m)

	require.NoError(t, c.Listen())
	t.Cleanup(func() { _ = c.Close() })

	return c, m
}

// encodeSamples lays samples out the way the intercom sends them
func encodeSamples(samples []uint16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], s)
	}
	return data
}

func sendDatagrams(t *testing.T, addr net.Addr, datagrams ...[]byte) {
	t.Helper()

	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	for _, d := range datagrams {
		_, err := conn.Write(d)
		require.NoError(t, err)
	}
}

func waitForDatagrams(t *testing.T, c *Capturer, n uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.GetStatistics().DatagramsReceived >= n
	}, 2*time.Second, 5*time.Millisecond)
}

type runResult struct {
	stream *audio.SampleStream
	err    error
}

func TestRunCollectsSamplesInArrivalOrder(t *testing.T) {
	c, m := newTestCapturer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan runResult, 1)
	go func() {
		stream, err := c.Run(ctx)
		done <- runResult{stream, err}
	}()

	require.Eventually(t, func() bool { return c.GetStatistics().Running }, time.Second, 5*time.Millisecond)

	sendDatagrams(t, c.LocalAddr(),
		encodeSamples([]uint16{0, 100}),
		encodeSamples([]uint16{50}),
		[]byte{0x07, 0x00, 0x08, 0x00, 0x09}, // odd length, last byte dropped
	)
	waitForDatagrams(t, c, 3)
	cancel()

	var res runResult
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	require.NoError(t, res.err)
	require.True(t, res.stream.Frozen())
	if diff := cmp.Diff([]uint16{0, 100, 50, 7, 8}, res.stream.Samples()); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}

	stats := c.GetStatistics()
	assert.False(t, stats.Running)
	assert.NotEmpty(t, stats.CaptureID)
	assert.Equal(t, uint64(3), stats.DatagramsReceived)
	assert.Equal(t, uint64(1), stats.DatagramsTruncated)
	assert.Equal(t, uint64(11), stats.BytesReceived)
	assert.Equal(t, uint64(5), stats.SamplesCaptured)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.DatagramsReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatagramsTruncated))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CaptureActive))
}

func TestRunStopsWhenIdle(t *testing.T) {
	c, _ := newTestCapturer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	stream, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, stream.Len())
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunWithoutListen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	c := NewCapturer(Config{ListenAddress: "127.0.0.1:0", BufferSize: 1024}, logger,
		metrics.NewMetrics(prometheus.NewRegistry()))

	_, err := c.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, c.LocalAddr())
}

func TestRunReceiveFailureIsFatal(t *testing.T) {
	c, _ := newTestCapturer(t)

	done := make(chan runResult, 1)
	go func() {
		stream, err := c.Run(context.Background())
		done <- runResult{stream, err}
	}()

	require.Eventually(t, func() bool { return c.GetStatistics().Running }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case res := <-done:
		assert.Error(t, res.err)
		assert.True(t, res.stream.Frozen())
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the socket was closed")
	}
}
