// Package synth renders deterministic voice-like test signals.
//
// A Voice is a harmonic source at a fixed pitch shaped by formant
// resonances and gated into syllables, over a low white-noise floor:
//
//	clip := synth.Voice{Pitch: 150, Seed: 1}.Render(3, 16000)
//
// Two renders of the same Voice with different seeds differ only in
// harmonic phases and noise, so they model two takes of the same speaker.
package synth

import (
	"math"
	"math/rand/v2"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Formant is a spectral-envelope resonance.
type Formant struct {
	Freq      float64 // center frequency in Hz
	Bandwidth float64 // Gaussian width in Hz
	Gain      float64 // relative amplitude
}

// Default voice shape: an adult male open vowel.
var (
	DefaultFormants = []Formant{
		{Freq: 600, Bandwidth: 150, Gain: 1.0},
		{Freq: 1200, Bandwidth: 200, Gain: 0.6},
		{Freq: 2500, Bandwidth: 300, Gain: 0.3},
	}

	// BrightFormants is a markedly different envelope.
	BrightFormants = []Formant{
		{Freq: 1000, Bandwidth: 200, Gain: 0.8},
		{Freq: 2800, Bandwidth: 250, Gain: 1.0},
		{Freq: 4200, Bandwidth: 300, Gain: 0.7},
	}
)

// Voice describes a synthetic speaker.
type Voice struct {
	Pitch    float64   // fundamental in Hz
	Formants []Formant // nil selects DefaultFormants

	// SyllableRate is syllables per second (default 1.25) and Duty the
	// voiced fraction of each syllable period (default 0.3).
	SyllableRate float64
	Duty         float64

	Noise float64 // noise floor amplitude (default 0.003)
	Seed  uint64
}

// Render returns seconds of the voice at rate as a mono clip.
func (v Voice) Render(seconds float64, rate int) voiceprint.Clip {
	formants := v.Formants
	if formants == nil {
		formants = DefaultFormants
	}
	syllable := v.SyllableRate
	if syllable <= 0 {
		syllable = 1.25
	}
	duty := v.Duty
	if duty <= 0 || duty > 1 {
		duty = 0.3
	}
	noise := v.Noise
	if noise == 0 {
		noise = 0.003
	}

	rng := rand.New(rand.NewPCG(v.Seed, v.Seed^0x9e3779b97f4a7c15))
	nyquist := float64(rate) / 2
	var amps, phases []float64
	for h := 1; float64(h)*v.Pitch < min(5000, 0.9*nyquist); h++ {
		f := float64(h) * v.Pitch
		a := 0.02 / float64(h)
		for _, fm := range formants {
			d := (f - fm.Freq) / fm.Bandwidth
			a += fm.Gain * math.Exp(-0.5*d*d)
		}
		amps = append(amps, a)
		phases = append(phases, rng.Float64()*2*math.Pi)
	}

	n := int(seconds * float64(rate))
	out := make([]float64, n)
	period := 1 / syllable
	on := duty * period
	for i := range out {
		t := float64(i) / float64(rate)
		s := 0.0
		if pos := math.Mod(t, period); pos < on {
			env := math.Sin(math.Pi * pos / on)
			for h, a := range amps {
				s += a * math.Sin(2*math.Pi*v.Pitch*float64(h+1)*t+phases[h])
			}
			s *= env * env
		}
		out[i] = 0.3*s + noise*rng.NormFloat64()
	}
	return voiceprint.Clip{SampleRate: rate, Channels: 1, Samples: out}
}

// Silence returns an all-zero clip.
func Silence(seconds float64, rate int) voiceprint.Clip {
	return voiceprint.Clip{SampleRate: rate, Channels: 1, Samples: make([]float64, int(seconds*float64(rate)))}
}

// Tone returns a pure sine wave.
func Tone(freq, seconds float64, rate int, amplitude float64) voiceprint.Clip {
	out := make([]float64, int(seconds*float64(rate)))
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return voiceprint.Clip{SampleRate: rate, Channels: 1, Samples: out}
}
