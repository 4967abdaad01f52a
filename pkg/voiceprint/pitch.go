package voiceprint

import (
	"errors"
	"math"

	"github.com/haivivi/voicegate/pkg/audio/fbank"
)

// silentFrameRMS marks frames too quiet to carry pitch.
const silentFrameRMS = 1e-4

type pitchStats struct {
	mean, std, voicedRatio float64
}

// pitch tracks f0 with the YIN cumulative mean normalized difference over
// centered frames, restricted to [PitchMinHz, PitchMaxHz]. Statistics are
// taken over voiced frames only.
func (e *Extractor) pitch(x []float64) (pitchStats, error) {
	rate := float64(e.rate)
	tauMin := max(2, int(math.Floor(rate/e.cfg.PitchMaxHz)))
	tauMax := int(math.Ceil(rate / e.cfg.PitchMinHz))
	frameLen := e.cfg.PitchFrameSize
	if tauMax >= frameLen/2 {
		return pitchStats{}, errors.New("pitch frame too short for the pitch band")
	}

	frames := fbank.Frames(x, frameLen, e.cfg.HopSize, true)
	diff := make([]float64, tauMax+2)
	var f0s []float64
	for _, frame := range frames {
		if frameRMS(frame) < silentFrameRMS {
			continue
		}
		if period, ok := yin(frame, tauMin, tauMax, e.cfg.YINThreshold, diff); ok {
			f0s = append(f0s, rate/period)
		}
	}

	if len(frames) == 0 {
		return pitchStats{}, errors.New("no frames")
	}
	s := pitchStats{voicedRatio: float64(len(f0s)) / float64(len(frames))}
	if len(f0s) > 0 {
		s.mean, s.std = meanStd(f0s)
	}
	return s, nil
}

// yin returns the fractional period in samples of frame, or false if no lag
// in [tauMin, tauMax] falls below threshold. diff is scratch space of at
// least tauMax+2 elements.
func yin(frame []float64, tauMin, tauMax int, threshold float64, diff []float64) (float64, bool) {
	w := len(frame) - tauMax - 1

	// Difference function.
	for tau := 1; tau <= tauMax+1; tau++ {
		sum := 0.0
		for j := range w {
			d := frame[j] - frame[j+tau]
			sum += d * d
		}
		diff[tau] = sum
	}

	// Cumulative mean normalization, in place.
	diff[0] = 1
	running := 0.0
	for tau := 1; tau <= tauMax+1; tau++ {
		running += diff[tau]
		if running == 0 {
			diff[tau] = 1
			continue
		}
		diff[tau] *= float64(tau) / running
	}

	for tau := tauMin; tau <= tauMax; tau++ {
		if diff[tau] >= threshold {
			continue
		}
		for tau+1 <= tauMax && diff[tau+1] < diff[tau] {
			tau++
		}
		return parabolicPeak(diff, tau), true
	}
	return 0, false
}

// parabolicPeak refines the extremum at index i of y.
func parabolicPeak(y []float64, i int) float64 {
	if i <= 0 || i >= len(y)-1 {
		return float64(i)
	}
	a, b, c := y[i-1], y[i], y[i+1]
	den := a - 2*b + c
	if den == 0 {
		return float64(i)
	}
	shift := 0.5 * (a - c) / den
	if math.Abs(shift) > 1 {
		return float64(i)
	}
	return float64(i) + shift
}
