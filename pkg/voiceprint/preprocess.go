package voiceprint

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/haivivi/voicegate/pkg/audio/resampler"
)

// Preprocessor converts raw clips to the canonical ProcessedClip form.
type Preprocessor struct {
	rate   int
	filter FilterConfig
	log    *slog.Logger
}

// NewPreprocessor creates a Preprocessor for cfg.
func NewPreprocessor(cfg Config, opts ...Option) *Preprocessor {
	o := buildOptions(opts)
	return &Preprocessor{
		rate:   cfg.TargetSampleRate,
		filter: cfg.Filter,
		log:    o.logger,
	}
}

// Process mixes clip to mono, resamples it to the target rate,
// peak-normalizes, bandpass-filters and removes DC.
//
// Only an empty clip or a non-positive sample rate is an error. A step that
// cannot complete is logged and skipped; the returned clip always has the
// target sample rate.
func (p *Preprocessor) Process(clip Clip) (ProcessedClip, error) {
	if len(clip.Samples) == 0 {
		return ProcessedClip{}, fmt.Errorf("%w: empty clip", ErrPreprocess)
	}
	if clip.SampleRate <= 0 {
		return ProcessedClip{}, fmt.Errorf("%w: invalid sample rate %d", ErrPreprocess, clip.SampleRate)
	}

	x := mixDown(clip.Samples, clip.Channels)
	if len(x) == 0 {
		return ProcessedClip{}, fmt.Errorf("%w: no complete frames in %d-channel clip", ErrPreprocess, clip.Channels)
	}

	if clip.SampleRate != p.rate {
		y, err := resampler.Resample(x, clip.SampleRate, p.rate)
		if err != nil {
			p.log.Warn("voiceprint: resampling failed, using linear interpolation",
				"from", clip.SampleRate, "to", p.rate, "error", err)
			y = linearResample(x, clip.SampleRate, p.rate)
		}
		x = y
	}

	normalizePeak(x)

	low, high := p.band()
	if low < high {
		x = butterBandpass(p.filter.Order, low, high, float64(p.rate)).filtfilt(x)
	} else {
		p.log.Debug("voiceprint: bandpass skipped", "low", low, "high", high)
	}

	removeDC(x)
	return ProcessedClip{SampleRate: p.rate, Samples: x}, nil
}

// band returns the effective bandpass edges for the target rate.
func (p *Preprocessor) band() (low, high float64) {
	nyquist := float64(p.rate) / 2
	return p.filter.LowHz, min(p.filter.HighHz, p.filter.NyquistFraction*nyquist)
}

// mixDown averages interleaved channels into a fresh mono buffer. A trailing
// partial frame is dropped.
func mixDown(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return append([]float64(nil), samples...)
	}
	n := len(samples) / channels
	out := make([]float64, n)
	for i := range n {
		sum := 0.0
		for c := range channels {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// normalizePeak scales x so that its largest magnitude is 1. Silence is left
// untouched.
func normalizePeak(x []float64) {
	peak := 0.0
	for _, v := range x {
		peak = max(peak, math.Abs(v))
	}
	if peak == 0 || math.IsInf(peak, 0) || math.IsNaN(peak) {
		return
	}
	for i := range x {
		x[i] /= peak
	}
}

func removeDC(x []float64) {
	if len(x) == 0 {
		return
	}
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	for i := range x {
		x[i] -= mean
	}
}

// linearResample is the fallback used when the polyphase resampler fails.
func linearResample(x []float64, from, to int) []float64 {
	n := resampler.OutputLen(len(x), from, to)
	out := make([]float64, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(x)-1 {
			out[i] = x[len(x)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = x[j]*(1-frac) + x[j+1]*frac
	}
	return out
}
