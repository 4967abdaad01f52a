// Package resampler converts whole mono clips between sample rates using a
// pure Go polyphase resampler (no cgo).
//
// The pipeline works on complete, pre-captured clips, so the package exposes
// a one-shot function rather than a streaming reader:
//
//	out, err := resampler.Resample(samples, 44100, 16000)
//
// The output length is always round(len(x) * to / from); the filter's group
// delay is flushed with trailing silence and the result trimmed to length.
package resampler

import (
	"errors"
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ErrInvalidRate is returned for non-positive sample rates.
var ErrInvalidRate = errors.New("resampler: invalid sample rate")

// Resample converts mono samples x from rate from to rate to using the
// high-quality preset. Identical rates return a copy of x.
func Resample(x []float64, from, to int) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, from, to)
	}
	if from == to || len(x) == 0 {
		return append([]float64(nil), x...), nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create: %w", err)
	}

	want := OutputLen(len(x), from, to)

	// Trailing silence pushes the last input samples through the filter.
	in := make([]float64, len(x)+from/10+64)
	copy(in, x)
	out, err := r.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}

	if len(out) >= want {
		return out[:want], nil
	}
	padded := make([]float64, want)
	copy(padded, out)
	return padded, nil
}

// OutputLen returns the number of samples Resample produces for n input
// samples.
func OutputLen(n, from, to int) int {
	return int(math.Round(float64(n) * float64(to) / float64(from)))
}
