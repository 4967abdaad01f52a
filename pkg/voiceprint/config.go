package voiceprint

import (
	"errors"
	"fmt"
	"math"
)

// Named fallbacks used when a profile lacks a feature's spread.
const (
	// DefaultPitchStd is the f0 spread in Hz assumed when a profile has none.
	DefaultPitchStd = 20.0

	// SpectralFallbackStdRatio and TemporalFallbackStdRatio scale the
	// profile value into a spread when a profile has none:
	// std = |value|*ratio + FallbackStdOffset.
	SpectralFallbackStdRatio = 0.2
	TemporalFallbackStdRatio = 0.3
	FallbackStdOffset        = 1.0
)

// Config holds every tunable of the pipeline. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// TargetSampleRate is the rate of every ProcessedClip.
	TargetSampleRate int `yaml:"target_sample_rate" json:"target_sample_rate"`

	Filter     FilterConfig     `yaml:"filter" json:"filter"`
	VAD        VADConfig        `yaml:"vad" json:"vad"`
	EnrollGate GateConfig       `yaml:"enroll_gate" json:"enroll_gate"`
	VerifyGate GateConfig       `yaml:"verify_gate" json:"verify_gate"`
	Features   FeatureConfig    `yaml:"features" json:"features"`
	Similarity SimilarityConfig `yaml:"similarity" json:"similarity"`
	Simple     SimpleConfig     `yaml:"simple" json:"simple"`
}

// FilterConfig describes the speech bandpass.
type FilterConfig struct {
	LowHz  float64 `yaml:"low_hz" json:"low_hz"`
	HighHz float64 `yaml:"high_hz" json:"high_hz"`
	// NyquistFraction caps the upper edge at this fraction of Nyquist.
	NyquistFraction float64 `yaml:"nyquist_fraction" json:"nyquist_fraction"`
	// Order is the Butterworth order per edge; must be even.
	Order int `yaml:"order" json:"order"`
}

// VADConfig describes the energy voice-activity detector shared by both
// gates.
type VADConfig struct {
	FrameMs    float64 `yaml:"frame_ms" json:"frame_ms"`
	HopMs      float64 `yaml:"hop_ms" json:"hop_ms"`
	Percentile float64 `yaml:"percentile" json:"percentile"`
}

// GateConfig is one quality operating point.
type GateConfig struct {
	MinSpeechRatio float64 `yaml:"min_speech_ratio" json:"min_speech_ratio"`
	MinSNR         float64 `yaml:"min_snr_db" json:"min_snr_db"`
	MinDuration    float64 `yaml:"min_duration_s" json:"min_duration_s"`
	// Enforce rejects failing clips; otherwise they are only flagged.
	Enforce bool `yaml:"enforce" json:"enforce"`
}

// FeatureConfig describes the feature extractor.
type FeatureConfig struct {
	MinSamples     int     `yaml:"min_samples" json:"min_samples"`
	FrameSize      int     `yaml:"frame_size" json:"frame_size"`
	HopSize        int     `yaml:"hop_size" json:"hop_size"`
	NumMFCC        int     `yaml:"num_mfcc" json:"num_mfcc"`
	NumMels        int     `yaml:"num_mels" json:"num_mels"`
	DeltaWidth     int     `yaml:"delta_width" json:"delta_width"`
	PitchMinHz     float64 `yaml:"pitch_min_hz" json:"pitch_min_hz"`
	PitchMaxHz     float64 `yaml:"pitch_max_hz" json:"pitch_max_hz"`
	PitchFrameSize int     `yaml:"pitch_frame_size" json:"pitch_frame_size"`
	YINThreshold   float64 `yaml:"yin_threshold" json:"yin_threshold"`
	RolloffPercent float64 `yaml:"rolloff_percent" json:"rolloff_percent"`
	ChromaMinHz    float64 `yaml:"chroma_min_hz" json:"chroma_min_hz"`
	MinTempo       float64 `yaml:"min_tempo" json:"min_tempo"`
	MaxTempo       float64 `yaml:"max_tempo" json:"max_tempo"`
	DefaultTempo   float64 `yaml:"default_tempo" json:"default_tempo"`
}

// Weights are the composite score weights of each feature family.
type Weights struct {
	Cepstral float64 `yaml:"cepstral" json:"cepstral"`
	Pitch    float64 `yaml:"pitch" json:"pitch"`
	Spectral float64 `yaml:"spectral" json:"spectral"`
	Temporal float64 `yaml:"temporal" json:"temporal"`
	Harmonic float64 `yaml:"harmonic" json:"harmonic"`
	Voicing  float64 `yaml:"voicing" json:"voicing"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Cepstral + w.Pitch + w.Spectral + w.Temporal + w.Harmonic + w.Voicing
}

// LadderKind selects fixed or adaptive confidence tiers.
type LadderKind string

const (
	LadderFixed    LadderKind = "fixed"
	LadderAdaptive LadderKind = "adaptive"
)

// SimilarityConfig configures the multi-metric engine.
type SimilarityConfig struct {
	Mode     Mode       `yaml:"mode" json:"mode"`
	Weights  Weights    `yaml:"weights" json:"weights"`
	Ladder   LadderKind `yaml:"ladder" json:"ladder"`
	Fixed    Ladder     `yaml:"fixed_ladder" json:"fixed_ladder"`
	Adaptive Ladder     `yaml:"adaptive_ladder" json:"adaptive_ladder"`

	// LenientShift widens the adaptive ladder for strong evidence;
	// StrictShift narrows it for weak evidence.
	LenientShift float64 `yaml:"lenient_shift" json:"lenient_shift"`
	StrictShift  float64 `yaml:"strict_shift" json:"strict_shift"`

	DefaultPitchStd          float64 `yaml:"default_pitch_std" json:"default_pitch_std"`
	SpectralFallbackStdRatio float64 `yaml:"spectral_fallback_std_ratio" json:"spectral_fallback_std_ratio"`
	TemporalFallbackStdRatio float64 `yaml:"temporal_fallback_std_ratio" json:"temporal_fallback_std_ratio"`
	FallbackStdOffset        float64 `yaml:"fallback_std_offset" json:"fallback_std_offset"`

	// StdFloorRatio bounds every spread below by this fraction of the
	// profile value, so profiles enrolled from near-identical samples do
	// not turn tiny differences into huge z-scores. Zero disables it.
	StdFloorRatio float64 `yaml:"std_floor_ratio" json:"std_floor_ratio"`
}

// SimpleConfig configures the reduced-feature comparator.
type SimpleConfig struct {
	// Threshold is the largest accepted RMS z-distance.
	Threshold     float64 `yaml:"threshold" json:"threshold"`
	StdFloor      float64 `yaml:"std_floor" json:"std_floor"`
	StdFloorRatio float64 `yaml:"std_floor_ratio" json:"std_floor_ratio"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		TargetSampleRate: 16000,
		Filter: FilterConfig{
			LowHz:           80,
			HighHz:          8000,
			NyquistFraction: 0.95,
			Order:           4,
		},
		VAD: VADConfig{
			FrameMs:    25,
			HopMs:      10,
			Percentile: 70,
		},
		EnrollGate: GateConfig{
			MinSpeechRatio: 0.2,
			MinSNR:         5,
			MinDuration:    2,
			Enforce:        true,
		},
		VerifyGate: GateConfig{
			MinSpeechRatio: 0.1,
			MinSNR:         2,
			MinDuration:    1,
		},
		Features: FeatureConfig{
			MinSamples:     1024,
			FrameSize:      2048,
			HopSize:        512,
			NumMFCC:        13,
			NumMels:        40,
			DeltaWidth:     4,
			PitchMinHz:     80,
			PitchMaxHz:     400,
			PitchFrameSize: 2048,
			YINThreshold:   0.2,
			RolloffPercent: 0.85,
			ChromaMinHz:    32.7,
			MinTempo:       60,
			MaxTempo:       200,
			DefaultTempo:   120,
		},
		Similarity: SimilarityConfig{
			Mode: ModeMulti,
			Weights: Weights{
				Cepstral: 0.40,
				Pitch:    0.20,
				Spectral: 0.15,
				Temporal: 0.15,
				Harmonic: 0.05,
				Voicing:  0.05,
			},
			Ladder:                   LadderAdaptive,
			Fixed:                    Ladder{High: 0.20, Medium: 0.35, Low: 0.50},
			Adaptive:                 Ladder{High: 0.15, Medium: 0.25, Low: 0.40},
			LenientShift:             0.05,
			StrictShift:              0.01,
			DefaultPitchStd:          DefaultPitchStd,
			SpectralFallbackStdRatio: SpectralFallbackStdRatio,
			TemporalFallbackStdRatio: TemporalFallbackStdRatio,
			FallbackStdOffset:        FallbackStdOffset,
			StdFloorRatio:            0.05,
		},
		Simple: SimpleConfig{
			Threshold:     3.0,
			StdFloor:      1.0,
			StdFloorRatio: 0.05,
		},
	}
}

// Validate reports every inconsistency in c.
func (c Config) Validate() error {
	var errs []error
	if c.TargetSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("target_sample_rate must be positive, got %d", c.TargetSampleRate))
	}
	if c.Filter.Order <= 0 || c.Filter.Order%2 != 0 {
		errs = append(errs, fmt.Errorf("filter.order must be a positive even number, got %d", c.Filter.Order))
	}
	if c.VAD.FrameMs <= 0 || c.VAD.HopMs <= 0 {
		errs = append(errs, errors.New("vad frame_ms and hop_ms must be positive"))
	}
	if c.VAD.Percentile < 0 || c.VAD.Percentile > 100 {
		errs = append(errs, fmt.Errorf("vad.percentile must be in [0,100], got %g", c.VAD.Percentile))
	}
	f := c.Features
	if f.FrameSize <= 0 || f.HopSize <= 0 || f.PitchFrameSize <= 0 {
		errs = append(errs, errors.New("features frame sizes must be positive"))
	}
	if f.NumMFCC <= 0 || f.NumMels < f.NumMFCC {
		errs = append(errs, fmt.Errorf("features: need 0 < num_mfcc <= num_mels, got %d/%d", f.NumMFCC, f.NumMels))
	}
	if f.PitchMinHz <= 0 || f.PitchMaxHz <= f.PitchMinHz {
		errs = append(errs, fmt.Errorf("features: invalid pitch band [%g, %g]", f.PitchMinHz, f.PitchMaxHz))
	}
	if f.MinTempo <= 0 || f.MaxTempo <= f.MinTempo {
		errs = append(errs, fmt.Errorf("features: invalid tempo range [%g, %g]", f.MinTempo, f.MaxTempo))
	}
	if sum := c.Similarity.Weights.Sum(); math.Abs(sum-1) > 1e-6 {
		errs = append(errs, fmt.Errorf("similarity.weights must sum to 1, got %g", sum))
	}
	switch c.Similarity.Ladder {
	case LadderFixed, LadderAdaptive:
	default:
		errs = append(errs, fmt.Errorf("similarity.ladder must be fixed or adaptive, got %q", c.Similarity.Ladder))
	}
	if _, err := ParseMode(string(c.Similarity.Mode)); err != nil {
		errs = append(errs, err)
	}
	if c.Simple.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("simple.threshold must be positive, got %g", c.Simple.Threshold))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("voiceprint: invalid config: %w", err)
	}
	return nil
}
