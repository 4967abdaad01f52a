package voiceprint

import (
	"math"

	"github.com/haivivi/voicegate/pkg/audio/fbank"
)

type temporalStats struct {
	zcrMean, zcrStd float64
	rmsMean, rmsStd float64
	tempo           float64
}

// temporal computes frame zero-crossing rate and RMS energy statistics and
// a tempo estimate from the onset envelope.
func (e *Extractor) temporal(x []float64, power [][]float64) (temporalStats, error) {
	frames := fbank.Frames(x, e.cfg.FrameSize, e.cfg.HopSize, true)
	if len(frames) == 0 {
		return temporalStats{}, errNoFrames
	}
	zcr := make([]float64, len(frames))
	rms := make([]float64, len(frames))
	for i, f := range frames {
		zcr[i] = zeroCrossingRate(f)
		rms[i] = frameRMS(f)
	}

	var s temporalStats
	s.zcrMean, s.zcrStd = meanStd(zcr)
	s.rmsMean, s.rmsStd = meanStd(rms)
	s.tempo = e.tempo(power)
	return s, nil
}

// zeroCrossingRate counts sign changes per sample; zero counts as positive.
func zeroCrossingRate(frame []float64) float64 {
	if len(frame) < 2 {
		return 0
	}
	n := 0
	for i := 1; i < len(frame); i++ {
		if math.Signbit(frame[i]) != math.Signbit(frame[i-1]) {
			n++
		}
	}
	return float64(n) / float64(len(frame))
}

// onsetEnvelope is the mean positive log-mel flux between frames.
func (e *Extractor) onsetEnvelope(power [][]float64) []float64 {
	mel := make([][]float64, len(power))
	for t, row := range power {
		mel[t] = fbank.ApplyFilterBank(row, e.melBank)
	}
	fbank.PowerToDB(mel)
	env := make([]float64, len(mel))
	for t := 1; t < len(mel); t++ {
		sum := 0.0
		for m := range mel[t] {
			sum += max(0, mel[t][m]-mel[t-1][m])
		}
		env[t] = sum / float64(len(mel[t]))
	}
	return env
}

// tempo picks the onset-autocorrelation lag in [MinTempo, MaxTempo] BPM,
// weighted by a log-normal prior centered on DefaultTempo. Clips too short
// to hold two beat periods, or without onsets, get DefaultTempo.
func (e *Extractor) tempo(power [][]float64) float64 {
	env := e.onsetEnvelope(power)
	fps := float64(e.rate) / float64(e.cfg.HopSize)
	minLag := max(1, int(math.Floor(60*fps/e.cfg.MaxTempo)))
	maxLag := int(math.Ceil(60 * fps / e.cfg.MinTempo))
	if len(env) < 2*maxLag {
		return e.cfg.DefaultTempo
	}

	mean, _ := meanStd(env)
	centered := make([]float64, len(env))
	energy := 0.0
	for i, v := range env {
		centered[i] = v - mean
		energy += centered[i] * centered[i]
	}
	if energy < 1e-12 {
		return e.cfg.DefaultTempo
	}

	corr := make([]float64, maxLag+2)
	for lag := minLag - 1; lag <= maxLag+1; lag++ {
		if lag < 0 {
			continue
		}
		sum := 0.0
		for i := 0; i+lag < len(centered); i++ {
			sum += centered[i] * centered[i+lag]
		}
		corr[lag] = sum / energy
	}

	best, bestScore := -1, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		bpm := 60 * fps / float64(lag)
		prior := math.Exp(-0.5 * math.Pow(math.Log2(bpm/e.cfg.DefaultTempo), 2))
		if score := corr[lag] * prior; best < 0 || score > bestScore {
			best, bestScore = lag, score
		}
	}
	if bestScore <= 0 {
		return e.cfg.DefaultTempo
	}
	lag := parabolicPeak(corr, best)
	if lag <= 0 {
		lag = float64(best)
	}
	return 60 * fps / lag
}
