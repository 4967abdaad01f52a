// Package fbank computes frame-level spectral front-end features from mono
// PCM audio: short-time power spectra, mel filterbank energies, cepstral
// coefficients and their deltas.
//
// Default parameters follow the librosa convention used for speaker
// characterization at 16 kHz:
//
//	SampleRate: 16000
//	FrameSize:  2048
//	HopSize:     512
//	FFTSize:    2048
//	Window:     Hann
//	Center:     true (frames are centered, signal zero-padded by FrameSize/2)
package fbank

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Window selects the analysis window shape.
type Window int

const (
	Hann Window = iota
	Hamming
)

// Config controls short-time analysis parameters.
type Config struct {
	SampleRate int    // audio sample rate in Hz (default 16000)
	FrameSize  int    // frame length in samples (default 2048)
	HopSize    int    // hop length in samples (default 512)
	FFTSize    int    // FFT size, >= FrameSize (default 2048)
	Window     Window // analysis window (default Hann)
	Center     bool   // center frames on hop positions (default true)
}

// DefaultConfig returns the 16 kHz speaker-analysis front end.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		FrameSize:  2048,
		HopSize:    512,
		FFTSize:    2048,
		Window:     Hann,
		Center:     true,
	}
}

// Analyzer computes short-time spectra for a fixed Config. An Analyzer is
// not safe for concurrent use; create one per goroutine.
type Analyzer struct {
	cfg    Config
	window []float64
	fft    *fourier.FFT
	buf    []float64
	coeffs []complex128
}

// New creates an Analyzer for cfg.
func New(cfg Config) *Analyzer {
	if cfg.FFTSize < cfg.FrameSize {
		cfg.FFTSize = cfg.FrameSize
	}
	a := &Analyzer{
		cfg: cfg,
		fft: fourier.NewFFT(cfg.FFTSize),
		buf: make([]float64, cfg.FFTSize),
	}
	switch cfg.Window {
	case Hamming:
		a.window = hammingWindow(cfg.FrameSize)
	default:
		a.window = hannWindow(cfg.FrameSize)
	}
	return a
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// NumBins returns the number of non-negative frequency bins, FFTSize/2+1.
func (a *Analyzer) NumBins() int { return a.cfg.FFTSize/2 + 1 }

// BinFrequencies returns the center frequency in Hz of each spectrum bin.
func (a *Analyzer) BinFrequencies() []float64 {
	freqs := make([]float64, a.NumBins())
	for k := range freqs {
		freqs[k] = float64(k) * float64(a.cfg.SampleRate) / float64(a.cfg.FFTSize)
	}
	return freqs
}

// Magnitude returns the magnitude spectrogram of x as [T][NumBins].
func (a *Analyzer) Magnitude(x []float64) [][]float64 {
	return a.spectrogram(x, false)
}

// Power returns the power spectrogram of x as [T][NumBins].
func (a *Analyzer) Power(x []float64) [][]float64 {
	return a.spectrogram(x, true)
}

func (a *Analyzer) spectrogram(x []float64, power bool) [][]float64 {
	frames := Frames(x, a.cfg.FrameSize, a.cfg.HopSize, a.cfg.Center)
	out := make([][]float64, len(frames))
	for t, frame := range frames {
		for i := range a.buf {
			a.buf[i] = 0
		}
		for i, s := range frame {
			a.buf[i] = s * a.window[i]
		}
		a.coeffs = a.fft.Coefficients(a.coeffs, a.buf)
		row := make([]float64, len(a.coeffs))
		for k, c := range a.coeffs {
			m := cmplx.Abs(c)
			if power {
				m *= m
			}
			row[k] = m
		}
		out[t] = row
	}
	return out
}

// ApplyFilterBank returns the filterbank-weighted sums of one spectrum row.
func ApplyFilterBank(row []float64, bank [][]float64) []float64 {
	out := make([]float64, len(bank))
	for m, filter := range bank {
		sum := 0.0
		for k, w := range filter {
			if w != 0 && k < len(row) {
				sum += w * row[k]
			}
		}
		out[m] = sum
	}
	return out
}
