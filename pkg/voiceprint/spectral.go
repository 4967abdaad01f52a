package voiceprint

import (
	"errors"
	"math"

	"github.com/haivivi/voicegate/pkg/audio/fbank"
)

var errNoFrames = errors.New("no analysis frames")

type mfccStats struct {
	mean, std, delta []float64
}

// mfcc summarizes per-frame cepstral coefficients and their regression
// deltas.
func (e *Extractor) mfcc(power [][]float64) (mfccStats, error) {
	if len(power) == 0 {
		return mfccStats{}, errNoFrames
	}
	coeffs := fbank.MFCC(power, e.melBank, e.cfg.NumMFCC)
	deltas := fbank.Deltas(coeffs, e.cfg.DeltaWidth)

	var s mfccStats
	s.mean, s.std = columnStats(coeffs, e.cfg.NumMFCC)
	s.delta, _ = columnStats(deltas, e.cfg.NumMFCC)
	if !allFinite(s.mean) || !allFinite(s.std) || !allFinite(s.delta) {
		return mfccStats{}, errors.New("non-finite cepstral coefficients")
	}
	return s, nil
}

type spectralStats struct {
	centroidMean, centroidStd float64
	rolloffMean               float64
	bandwidthMean             float64
}

// spectral computes centroid, rolloff and bandwidth per frame of the
// magnitude spectrogram and averages them.
func (e *Extractor) spectral(mag [][]float64) (spectralStats, error) {
	if len(mag) == 0 {
		return spectralStats{}, errNoFrames
	}
	freqs := e.analyzer.BinFrequencies()
	centroids := make([]float64, len(mag))
	rolloffs := make([]float64, len(mag))
	bandwidths := make([]float64, len(mag))
	for t, row := range mag {
		total := 0.0
		weighted := 0.0
		for k, v := range row {
			total += v
			weighted += v * freqs[k]
		}
		if total == 0 {
			continue
		}
		c := weighted / total
		centroids[t] = c

		spread := 0.0
		for k, v := range row {
			d := freqs[k] - c
			spread += v / total * d * d
		}
		bandwidths[t] = math.Sqrt(spread)

		target := e.cfg.RolloffPercent * total
		cum := 0.0
		for k, v := range row {
			cum += v
			if cum >= target {
				rolloffs[t] = freqs[k]
				break
			}
		}
	}

	var s spectralStats
	s.centroidMean, s.centroidStd = meanStd(centroids)
	s.rolloffMean, _ = meanStd(rolloffs)
	s.bandwidthMean, _ = meanStd(bandwidths)
	return s, nil
}

// harmonic computes the frame-averaged 12-bin chroma profile (each frame
// max-normalized) and the 6-dimensional tonal centroid.
func (e *Extractor) harmonic(power [][]float64) (chroma, tonnetz []float64, err error) {
	if len(power) == 0 {
		return nil, nil, errNoFrames
	}
	freqs := e.analyzer.BinFrequencies()
	classes := make([]int, len(freqs))
	for k, f := range freqs {
		classes[k] = -1
		if f >= e.cfg.ChromaMinHz {
			midi := 69 + 12*math.Log2(f/440)
			classes[k] = ((int(math.Round(midi)) % ChromaBins) + ChromaBins) % ChromaBins
		}
	}

	chroma = make([]float64, ChromaBins)
	tonnetz = make([]float64, TonnetzDims)
	frame := make([]float64, ChromaBins)
	for _, row := range power {
		clear(frame)
		for k, v := range row {
			if c := classes[k]; c >= 0 {
				frame[c] += v
			}
		}
		peak, sum := 0.0, 0.0
		for _, v := range frame {
			peak = max(peak, v)
			sum += v
		}
		if peak == 0 {
			continue
		}
		for c, v := range frame {
			chroma[c] += v / peak
		}
		for d, v := range tonalCentroid(frame, sum) {
			tonnetz[d] += v
		}
	}
	n := float64(len(power))
	for c := range chroma {
		chroma[c] /= n
	}
	for d := range tonnetz {
		tonnetz[d] /= n
	}
	return chroma, tonnetz, nil
}

// tonalCentroid projects an L1-normalized chroma frame onto the circles of
// fifths, minor thirds and major thirds.
func tonalCentroid(chroma []float64, sum float64) []float64 {
	out := make([]float64, TonnetzDims)
	if sum == 0 {
		return out
	}
	for l, v := range chroma {
		w := v / sum
		fl := float64(l)
		out[0] += w * math.Sin(fl*7*math.Pi/6)
		out[1] += w * math.Cos(fl*7*math.Pi/6)
		out[2] += w * math.Sin(fl*3*math.Pi/2)
		out[3] += w * math.Cos(fl*3*math.Pi/2)
		out[4] += w * 0.5 * math.Sin(fl*2*math.Pi/3)
		out[5] += w * 0.5 * math.Cos(fl*2*math.Pi/3)
	}
	return out
}
