package voiceprint

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/haivivi/voicegate/pkg/audio/fbank"
)

// Fixed dimensions of the harmonic descriptors.
const (
	ChromaBins  = 12
	TonnetzDims = 6
)

// Feature names as stored in profiles.
const (
	FeatureF0Mean                = "f0_mean"
	FeatureF0Std                 = "f0_std"
	FeatureVoicingRatio          = "voicing_ratio"
	FeatureMFCCMean              = "mfcc_mean"
	FeatureMFCCStd               = "mfcc_std"
	FeatureMFCCDelta             = "mfcc_delta"
	FeatureSpectralCentroidMean  = "spectral_centroid_mean"
	FeatureSpectralCentroidStd   = "spectral_centroid_std"
	FeatureSpectralRolloffMean   = "spectral_rolloff_mean"
	FeatureSpectralBandwidthMean = "spectral_bandwidth_mean"
	FeatureChromaMean            = "chroma_mean"
	FeatureTonnetzMean           = "tonnetz_mean"
	FeatureZCRMean               = "zcr_mean"
	FeatureZCRStd                = "zcr_std"
	FeatureRMSMean               = "rms_mean"
	FeatureRMSStd                = "rms_std"
	FeatureTempo                 = "tempo"
	FeatureDuration              = "audio_duration"
	FeatureRMS                   = "audio_rms"
)

// FeatureVector is the fixed-layout description of one clip.
type FeatureVector struct {
	F0Mean       float64 `json:"f0_mean"`
	F0Std        float64 `json:"f0_std"`
	VoicingRatio float64 `json:"voicing_ratio"`

	MFCCMean  []float64 `json:"mfcc_mean"`
	MFCCStd   []float64 `json:"mfcc_std"`
	MFCCDelta []float64 `json:"mfcc_delta"`

	SpectralCentroidMean  float64 `json:"spectral_centroid_mean"`
	SpectralCentroidStd   float64 `json:"spectral_centroid_std"`
	SpectralRolloffMean   float64 `json:"spectral_rolloff_mean"`
	SpectralBandwidthMean float64 `json:"spectral_bandwidth_mean"`

	ChromaMean  []float64 `json:"chroma_mean"`
	TonnetzMean []float64 `json:"tonnetz_mean"`

	ZCRMean float64 `json:"zcr_mean"`
	ZCRStd  float64 `json:"zcr_std"`
	RMSMean float64 `json:"rms_mean"`
	RMSStd  float64 `json:"rms_std"`
	Tempo   float64 `json:"tempo"`

	Duration float64 `json:"audio_duration"`
	RMS      float64 `json:"audio_rms"`
}

// Scalars returns every scalar feature by name.
func (f *FeatureVector) Scalars() map[string]float64 {
	return map[string]float64{
		FeatureF0Mean:                f.F0Mean,
		FeatureF0Std:                 f.F0Std,
		FeatureVoicingRatio:          f.VoicingRatio,
		FeatureSpectralCentroidMean:  f.SpectralCentroidMean,
		FeatureSpectralCentroidStd:   f.SpectralCentroidStd,
		FeatureSpectralRolloffMean:   f.SpectralRolloffMean,
		FeatureSpectralBandwidthMean: f.SpectralBandwidthMean,
		FeatureZCRMean:               f.ZCRMean,
		FeatureZCRStd:                f.ZCRStd,
		FeatureRMSMean:               f.RMSMean,
		FeatureRMSStd:                f.RMSStd,
		FeatureTempo:                 f.Tempo,
		FeatureDuration:              f.Duration,
		FeatureRMS:                   f.RMS,
	}
}

// Vectors returns every vector feature by name.
func (f *FeatureVector) Vectors() map[string][]float64 {
	return map[string][]float64{
		FeatureMFCCMean:    f.MFCCMean,
		FeatureMFCCStd:     f.MFCCStd,
		FeatureMFCCDelta:   f.MFCCDelta,
		FeatureChromaMean:  f.ChromaMean,
		FeatureTonnetzMean: f.TonnetzMean,
	}
}

// Extractor derives FeatureVectors from processed clips. Not safe for
// concurrent use.
type Extractor struct {
	cfg      FeatureConfig
	rate     int
	analyzer *fbank.Analyzer
	melBank  [][]float64
	log      *slog.Logger
}

// NewExtractor creates an Extractor for cfg.
func NewExtractor(cfg Config, opts ...Option) *Extractor {
	o := buildOptions(opts)
	fc := cfg.Features
	analyzer := fbank.New(fbank.Config{
		SampleRate: cfg.TargetSampleRate,
		FrameSize:  fc.FrameSize,
		HopSize:    fc.HopSize,
		FFTSize:    fc.FrameSize,
		Window:     fbank.Hann,
		Center:     true,
	})
	return &Extractor{
		cfg:      fc,
		rate:     cfg.TargetSampleRate,
		analyzer: analyzer,
		melBank:  fbank.MelFilterBank(fc.NumMels, fc.FrameSize, cfg.TargetSampleRate, 0, float64(cfg.TargetSampleRate)/2),
		log:      o.logger,
	}
}

// Extract computes the feature vector of clip. Clips shorter than the
// configured minimum sample count yield ErrFeatureExtraction. Any single
// feature family that cannot be computed falls back to zeros and is logged.
func (e *Extractor) Extract(clip ProcessedClip) (*FeatureVector, error) {
	x := clip.Samples
	if len(x) < e.cfg.MinSamples {
		return nil, fmt.Errorf("%w: %d samples, need at least %d", ErrFeatureExtraction, len(x), e.cfg.MinSamples)
	}
	if clip.SampleRate != e.rate {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", ErrFeatureExtraction, clip.SampleRate, e.rate)
	}

	fv := &FeatureVector{
		MFCCMean:    make([]float64, e.cfg.NumMFCC),
		MFCCStd:     make([]float64, e.cfg.NumMFCC),
		MFCCDelta:   make([]float64, e.cfg.NumMFCC),
		ChromaMean:  make([]float64, ChromaBins),
		TonnetzMean: make([]float64, TonnetzDims),
		Duration:    clip.Seconds(),
		RMS:         frameRMS(x),
	}

	power := e.analyzer.Power(x)
	magnitude := sqrtSpectrogram(power)

	e.try("pitch", func() error {
		p, err := e.pitch(x)
		if err != nil {
			return err
		}
		fv.F0Mean, fv.F0Std, fv.VoicingRatio = p.mean, p.std, p.voicedRatio
		return nil
	})
	e.try("mfcc", func() error {
		m, err := e.mfcc(power)
		if err != nil {
			return err
		}
		fv.MFCCMean, fv.MFCCStd, fv.MFCCDelta = m.mean, m.std, m.delta
		return nil
	})
	e.try("spectral", func() error {
		s, err := e.spectral(magnitude)
		if err != nil {
			return err
		}
		fv.SpectralCentroidMean, fv.SpectralCentroidStd = s.centroidMean, s.centroidStd
		fv.SpectralRolloffMean, fv.SpectralBandwidthMean = s.rolloffMean, s.bandwidthMean
		return nil
	})
	e.try("harmonic", func() error {
		chroma, tonnetz, err := e.harmonic(power)
		if err != nil {
			return err
		}
		fv.ChromaMean, fv.TonnetzMean = chroma, tonnetz
		return nil
	})
	e.try("temporal", func() error {
		t, err := e.temporal(x, power)
		if err != nil {
			return err
		}
		fv.ZCRMean, fv.ZCRStd = t.zcrMean, t.zcrStd
		fv.RMSMean, fv.RMSStd = t.rmsMean, t.rmsStd
		fv.Tempo = t.tempo
		return nil
	})
	return fv, nil
}

// try runs one feature family, logging instead of failing.
func (e *Extractor) try(family string, fn func() error) {
	if err := fn(); err != nil {
		e.log.Warn("voiceprint: feature family degraded to defaults", "family", family, "error", err)
	}
}

func sqrtSpectrogram(power [][]float64) [][]float64 {
	out := make([][]float64, len(power))
	for t, row := range power {
		mag := make([]float64, len(row))
		for k, v := range row {
			mag[k] = math.Sqrt(v)
		}
		out[t] = mag
	}
	return out
}

// columnStats returns the per-column mean and population std of rows.
func columnStats(rows [][]float64, dim int) (mean, std []float64) {
	mean = make([]float64, dim)
	std = make([]float64, dim)
	col := make([]float64, len(rows))
	for d := range dim {
		for t, row := range rows {
			col[t] = row[d]
		}
		mean[d], std[d] = meanStd(col)
	}
	return mean, std
}
