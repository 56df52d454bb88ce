package audio

import (
	"errors"

	"github.com/nkalupahana/digital-intercom/internal/protocol"
)

// ErrStreamFrozen is returned when appending to a stream after capture ended.
var ErrStreamFrozen = errors.New("sample stream is frozen")

// SampleStream is the ordered sequence of raw samples collected during a capture.
// It is owned by a single capturing routine and carries no locking: it grows
// while capture runs, and once frozen it is only read.
type SampleStream struct {
	samples []uint16
	frozen  bool

	datagrams uint64 // datagrams appended
	truncated uint64 // datagrams whose trailing odd byte was dropped
}

// StreamStats represents stream statistics for monitoring
type StreamStats struct {
	Samples   int    `json:"samples"`
	Datagrams uint64 `json:"datagrams"`
	Truncated uint64 `json:"truncated_datagrams"`
	Frozen    bool   `json:"frozen"`
}

// NewSampleStream creates an empty stream with room for capacity samples
func NewSampleStream(capacity int) *SampleStream {
	if capacity < 0 {
		capacity = 0
	}
	return &SampleStream{
		samples: make([]uint16, 0, capacity),
	}
}

// AppendDatagram decodes a datagram and appends its samples in byte order.
// It returns the number of samples added and whether a trailing byte was dropped.
func (s *SampleStream) AppendDatagram(datagram []byte) (int, bool, error) {
	if s.frozen {
		return 0, false, ErrStreamFrozen
	}

	before := len(s.samples)
	var truncated bool
	s.samples, truncated = protocol.AppendSamples(s.samples, datagram)

	s.datagrams++
	if truncated {
		s.truncated++
	}

	return len(s.samples) - before, truncated, nil
}

// Freeze ends the append phase. It is idempotent.
func (s *SampleStream) Freeze() {
	s.frozen = true
}

// Frozen reports whether capture has ended
func (s *SampleStream) Frozen() bool {
	return s.frozen
}

// Len returns the number of samples collected
func (s *SampleStream) Len() int {
	return len(s.samples)
}

// Samples returns the collected samples. The slice aliases the stream's
// storage and must not be modified.
func (s *SampleStream) Samples() []uint16 {
	return s.samples
}

// Stats returns current stream statistics
func (s *SampleStream) Stats() StreamStats {
	return StreamStats{
		Samples:   len(s.samples),
		Datagrams: s.datagrams,
		Truncated: s.truncated,
		Frozen:    s.frozen,
	}
}
