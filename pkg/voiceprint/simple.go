package voiceprint

import "math"

// Score names reported by SimpleComparator.
const (
	ScoreCepstralZ = "mfcc_z"
	ScorePitchZ    = "f0_z"
	ScoreSpectralZ = "spectral_z"
)

// SimpleComparator is the lightweight verifier: a root-mean-square
// standardized distance over the mean MFCC vector, mean pitch and mean
// spectral centroid, with a single accept threshold.
type SimpleComparator struct {
	cfg SimpleConfig
}

// NewSimpleComparator creates a comparator for cfg.
func NewSimpleComparator(cfg Config) *SimpleComparator {
	return &SimpleComparator{cfg: cfg.Simple}
}

// Distance returns the RMS z-distance of live from p together with the RMS
// z of each feature group.
func (c *SimpleComparator) Distance(live *FeatureVector, p *Profile) (float64, map[string]float64) {
	var all []float64
	group := func(z []float64) float64 {
		all = append(all, z...)
		return rms(z)
	}

	groups := make(map[string]float64, 3)

	mfcc := p.Vectors[FeatureMFCCMean]
	zs := make([]float64, len(mfcc.Mean))
	for i := range mfcc.Mean {
		v := 0.0
		if i < len(live.MFCCMean) {
			v = live.MFCCMean[i]
		}
		zs[i] = c.z(v, mfcc.Mean[i], at(mfcc.Std, i))
	}
	groups[ScoreCepstralZ] = group(zs)

	f0 := p.Scalars[FeatureF0Mean]
	groups[ScorePitchZ] = group([]float64{c.z(live.F0Mean, f0.Mean, f0.Std)})

	sc := p.Scalars[FeatureSpectralCentroidMean]
	groups[ScoreSpectralZ] = group([]float64{c.z(live.SpectralCentroidMean, sc.Mean, sc.Std)})

	return rms(all), groups
}

// Verify accepts live when its distance is within the threshold. The
// decision is binary: accepted clips are graded medium, others reject.
func (c *SimpleComparator) Verify(live *FeatureVector, p *Profile) *VerificationResult {
	d, groups := c.Distance(live, p)
	conf := ConfidenceReject
	if d <= c.cfg.Threshold {
		conf = ConfidenceMedium
	}
	return &VerificationResult{
		User:       p.User,
		Verified:   conf.Accepted(),
		Confidence: conf,
		Score:      max(0, 1-d/(2*c.cfg.Threshold)),
		Distance:   d,
		Mode:       ModeSimple,
		Scores:     groups,
		Threshold:  c.cfg.Threshold,
	}
}

func (c *SimpleComparator) z(v, mean, std float64) float64 {
	sigma := max(finite(std), c.cfg.StdFloorRatio*math.Abs(mean), c.cfg.StdFloor, 1e-9)
	return (v - mean) / sigma
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
