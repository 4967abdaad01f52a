package voiceprint

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Score names reported in VerificationResult.Scores.
const (
	ScoreCepstral = "mfcc"
	ScorePitch    = "f0"
	ScoreSpectral = "spectral"
	ScoreTemporal = "temporal"
	ScoreHarmonic = "chroma"
	ScoreVoicing  = "voicing"
)

// neutralScore is used for a family that cannot be compared.
const neutralScore = 0.5

// Ladder holds the largest distance (1 - composite score) accepted at each
// confidence tier.
type Ladder struct {
	High   float64 `yaml:"high" json:"high"`
	Medium float64 `yaml:"medium" json:"medium"`
	Low    float64 `yaml:"low" json:"low"`
}

// Tier grades distance against the ladder.
func (l Ladder) Tier(distance float64) Confidence {
	switch {
	case distance <= l.High:
		return ConfidenceHigh
	case distance <= l.Medium:
		return ConfidenceMedium
	case distance <= l.Low:
		return ConfidenceLow
	}
	return ConfidenceReject
}

// Widen returns the ladder with every threshold raised by delta; a negative
// delta makes it stricter.
func (l Ladder) Widen(delta float64) Ladder {
	return Ladder{High: l.High + delta, Medium: l.Medium + delta, Low: l.Low + delta}
}

// Scores are the per-family similarities in [0, 1].
type Scores struct {
	Cepstral float64
	Pitch    float64
	Spectral float64
	Temporal float64
	Harmonic float64
	Voicing  float64
}

// Map returns the scores keyed by family name.
func (s Scores) Map() map[string]float64 {
	return map[string]float64{
		ScoreCepstral: s.Cepstral,
		ScorePitch:    s.Pitch,
		ScoreSpectral: s.Spectral,
		ScoreTemporal: s.Temporal,
		ScoreHarmonic: s.Harmonic,
		ScoreVoicing:  s.Voicing,
	}
}

// Composite returns the weighted sum of s.
func (s Scores) Composite(w Weights) float64 {
	return s.Cepstral*w.Cepstral + s.Pitch*w.Pitch + s.Spectral*w.Spectral +
		s.Temporal*w.Temporal + s.Harmonic*w.Harmonic + s.Voicing*w.Voicing
}

// Engine is the multi-metric scorer.
type Engine struct {
	cfg SimilarityConfig
}

// NewEngine creates an Engine for cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.Similarity}
}

// Score compares live against the profile family by family.
func (e *Engine) Score(live *FeatureVector, p *Profile) Scores {
	return Scores{
		Cepstral: e.cepstral(live, p),
		Pitch:    e.pitch(live, p),
		Spectral: e.spectral(live, p),
		Temporal: e.temporal(live, p),
		Harmonic: e.harmonic(live, p),
		Voicing:  e.voicing(live, p),
	}
}

// Ladder returns the thresholds applied to a decision with the given
// scores, and the shift applied to the base ladder.
func (e *Engine) Ladder(s Scores, sampleCount int) (Ladder, float64) {
	if e.cfg.Ladder == LadderFixed {
		return e.cfg.Fixed, 0
	}
	shift := 0.0
	switch {
	case sampleCount >= 5:
		shift += e.cfg.LenientShift
	case sampleCount < 3:
		shift -= e.cfg.StrictShift
	}
	switch {
	case s.Cepstral > 0.6 && s.Pitch > 0.5:
		shift += e.cfg.LenientShift
	case s.Cepstral < 0.2 || s.Pitch < 0.1:
		shift -= e.cfg.StrictShift
	}
	return e.cfg.Adaptive.Widen(shift), shift
}

// Verify scores live against p and grades the result. Identity, transcript
// and quality fields are left for the caller.
func (e *Engine) Verify(live *FeatureVector, p *Profile) *VerificationResult {
	scores := e.Score(live, p)
	composite := clamp01(scores.Composite(e.cfg.Weights))
	distance := 1 - composite
	ladder, _ := e.Ladder(scores, p.SampleCount)
	conf := ladder.Tier(distance)
	return &VerificationResult{
		User:       p.User,
		Verified:   conf.Accepted(),
		Confidence: conf,
		Score:      composite,
		Distance:   distance,
		Mode:       ModeMulti,
		Scores:     scores.Map(),
		Threshold:  ladder.Low,
	}
}

// cepstral averages cosine similarity and one minus the normalized
// Euclidean distance of the mean MFCC vectors.
func (e *Engine) cepstral(live *FeatureVector, p *Profile) float64 {
	ref, ok := p.Vector(FeatureMFCCMean)
	if !ok || len(ref) != len(live.MFCCMean) || len(ref) == 0 {
		return 0
	}
	cos := cosineSimilarity(live.MFCCMean, ref)
	norm := floats.Norm(live.MFCCMean, 2) + floats.Norm(ref, 2) + 1e-8
	euclid := floats.Distance(live.MFCCMean, ref, 2) / norm
	return clamp01((cos + (1 - euclid)) / 2)
}

func (e *Engine) pitch(live *FeatureVector, p *Profile) float64 {
	st, ok := p.Scalar(FeatureF0Mean)
	if !ok || live.F0Mean <= 0 || st.Mean <= 0 {
		return neutralScore
	}
	std := st.Std
	if !known(std) {
		std = e.cfg.DefaultPitchStd
	}
	std = e.floor(std, st.Mean)
	z := math.Abs(live.F0Mean-st.Mean) / (std + 1e-6)
	return max(0, 1-z/3)
}

func (e *Engine) spectral(live *FeatureVector, p *Profile) float64 {
	values := map[string]float64{
		FeatureSpectralCentroidMean:  live.SpectralCentroidMean,
		FeatureSpectralRolloffMean:   live.SpectralRolloffMean,
		FeatureSpectralBandwidthMean: live.SpectralBandwidthMean,
	}
	return e.relativeZ(values, p, e.cfg.SpectralFallbackStdRatio, 3)
}

func (e *Engine) temporal(live *FeatureVector, p *Profile) float64 {
	values := map[string]float64{
		FeatureZCRMean: live.ZCRMean,
		FeatureRMSMean: live.RMSMean,
		FeatureTempo:   live.Tempo,
	}
	return e.relativeZ(values, p, e.cfg.TemporalFallbackStdRatio, 2)
}

// relativeZ averages max(0, 1 - z/tolerance) over the named features with a
// non-zero profile value, where z is the relative difference measured in
// units of the profile's relative spread.
func (e *Engine) relativeZ(values map[string]float64, p *Profile, fallbackRatio, tolerance float64) float64 {
	sum, n := 0.0, 0
	for name, v := range values {
		st, ok := p.Scalar(name)
		if !ok || st.Mean == 0 {
			continue
		}
		ref := math.Abs(st.Mean)
		std := st.Std
		if !known(std) {
			std = ref*fallbackRatio + e.cfg.FallbackStdOffset
		}
		std = e.floor(std, st.Mean)
		rel := math.Abs(v-st.Mean) / (ref + 1e-6)
		z := rel / (std/ref + 1e-6)
		sum += max(0, 1-z/tolerance)
		n++
	}
	if n == 0 {
		return neutralScore
	}
	return sum / float64(n)
}

func (e *Engine) harmonic(live *FeatureVector, p *Profile) float64 {
	ref, ok := p.Vector(FeatureChromaMean)
	if !ok || len(ref) != len(live.ChromaMean) {
		return neutralScore
	}
	if floats.Norm(ref, 2) == 0 || floats.Norm(live.ChromaMean, 2) == 0 {
		return neutralScore
	}
	return clamp01(cosineSimilarity(live.ChromaMean, ref))
}

func (e *Engine) voicing(live *FeatureVector, p *Profile) float64 {
	st, ok := p.Scalar(FeatureVoicingRatio)
	if !ok {
		return neutralScore
	}
	return max(0, 1-2*math.Abs(live.VoicingRatio-st.Mean))
}

// known reports whether a profile spread carries information. A zero spread
// comes from identical enrollment samples and says nothing about natural
// variation, so the configured fallback is used instead.
func known(std float64) bool {
	return std > 0 && !math.IsNaN(std) && !math.IsInf(std, 0)
}

// floor bounds std below by StdFloorRatio of the reference value.
func (e *Engine) floor(std, ref float64) float64 {
	return max(std, e.cfg.StdFloorRatio*math.Abs(ref))
}

// cosineSimilarity returns 1 - cosine distance, or 0 if either vector is
// all zeros.
func cosineSimilarity(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func clamp01(v float64) float64 {
	return min(1, max(0, finite(v)))
}
