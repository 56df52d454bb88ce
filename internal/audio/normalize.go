package audio

import (
	"errors"
	"math"
)

var (
	// ErrEmptyCapture is returned when normalization is attempted with no samples.
	ErrEmptyCapture = errors.New("cannot normalize an empty capture")

	// ErrFlatCapture is returned when every sample has the same value, which
	// leaves no range to scale into.
	ErrFlatCapture = errors.New("cannot normalize a capture with no dynamic range")

	// ErrCaptureActive is returned when a stream is normalized before it is frozen.
	ErrCaptureActive = errors.New("cannot normalize a capture that is still running")
)

// fullScale is the width of the signed 16-bit output range.
const fullScale = 1 << 16

// NormalizeStream rescales a frozen stream. See Normalize.
func NormalizeStream(s *SampleStream) ([]int16, error) {
	if !s.Frozen() {
		return nil, ErrCaptureActive
	}
	return Normalize(s.Samples())
}

// Normalize shifts samples so the minimum becomes zero, multiplies by the
// integer factor 65536/(max-min) and re-centres on -32768. Each result is
// narrowed to int16 with two's-complement wrapping, so a value that lands on
// exactly +32768 wraps to -32768.
func Normalize(samples []uint16) ([]int16, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyCapture
	}

	minVal, maxVal := samples[0], samples[0]
	for _, s := range samples[1:] {
		if s < minVal {
			minVal = s
		}
		if s > maxVal {
			maxVal = s
		}
	}

	span := int64(maxVal) - int64(minVal)
	if span == 0 {
		return nil, ErrFlatCapture
	}
	scale := fullScale / span

	normalized := make([]int16, len(samples))
	for i, s := range samples {
		shifted := int64(s) - int64(minVal)
		normalized[i] = int16(shifted*scale + math.MinInt16)
	}

	return normalized, nil
}
