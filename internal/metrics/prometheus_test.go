package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDatagram(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordDatagram(4, 2, false)
	m.RecordDatagram(5, 2, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DatagramsReceived))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.BytesReceived))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SamplesCaptured))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatagramsTruncated))
}

func TestCaptureLifecycleMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetCaptureActive(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CaptureActive))
	m.SetCaptureActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CaptureActive))

	m.RecordCaptureWritten(2.5, 1044)
	m.RecordCaptureFailure("empty")
	m.RecordCaptureFailure("empty")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CapturesWritten))
	assert.Equal(t, 1044.0, testutil.ToFloat64(m.OutputBytesWritten))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CaptureFailures.WithLabelValues("empty")))
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	require.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordCommandSent("OpenDoor")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `intercom_commands_sent_total{command="OpenDoor"} 1`), body)
}
