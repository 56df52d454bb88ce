package audio

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a captured stream before normalization
type Summary struct {
	Samples  int           `json:"samples"`
	Min      uint16        `json:"min"`
	Max      uint16        `json:"max"`
	Mean     float64       `json:"mean"`
	StdDev   float64       `json:"std_dev"`
	Duration time.Duration `json:"duration"`
}

// Summarize computes level statistics over raw samples. An empty input
// yields a zero Summary.
func Summarize(samples []uint16, sampleRate int) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = float64(s)
	}

	summary := Summary{
		Samples: len(samples),
		Min:     uint16(floats.Min(values)),
		Max:     uint16(floats.Max(values)),
	}

	// The unbiased estimator is undefined for a single sample.
	if len(values) > 1 {
		summary.Mean, summary.StdDev = stat.MeanStdDev(values, nil)
	} else {
		summary.Mean = values[0]
	}

	if sampleRate > 0 {
		summary.Duration = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}

	return summary
}
