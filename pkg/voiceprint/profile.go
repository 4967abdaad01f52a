package voiceprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// MinSamples is the fewest accepted samples a profile can be built from.
const MinSamples = 2

// ScalarStat summarizes one scalar feature across enrollment samples.
type ScalarStat struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// VectorStat summarizes one vector feature element-wise.
type VectorStat struct {
	Mean   []float64 `json:"mean"`
	Std    []float64 `json:"std"`
	Median []float64 `json:"median"`
}

// Profile is the persisted enrollment of one user.
type Profile struct {
	User        string                `json:"user"`
	Scalars     map[string]ScalarStat `json:"scalar_features"`
	Vectors     map[string]VectorStat `json:"vector_features"`
	SampleCount int                   `json:"sample_count"`
	Transcripts []string              `json:"transcripts"`
	CreatedAt   time.Time             `json:"created_timestamp"`
	Hash        string                `json:"profile_hash"`
	Version     string                `json:"version"`
}

// Scalar returns the stats of a scalar feature.
func (p *Profile) Scalar(name string) (ScalarStat, bool) {
	s, ok := p.Scalars[name]
	return s, ok
}

// Vector returns the element-wise mean of a vector feature.
func (p *Profile) Vector(name string) ([]float64, bool) {
	v, ok := p.Vectors[name]
	if !ok || len(v.Mean) == 0 {
		return nil, false
	}
	return v.Mean, true
}

// Aggregate builds a profile for user from two or more feature vectors.
// Every feature present in the first sample is summarized. The result does
// not depend on sample order.
func Aggregate(user string, samples []*FeatureVector) (*Profile, error) {
	samples = slices.DeleteFunc(slices.Clone(samples), func(f *FeatureVector) bool { return f == nil })
	if len(samples) < MinSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(samples), MinSamples)
	}

	p := &Profile{
		User:        user,
		Scalars:     make(map[string]ScalarStat),
		Vectors:     make(map[string]VectorStat),
		SampleCount: len(samples),
		Transcripts: []string{},
		CreatedAt:   time.Now().UTC(),
		Version:     SchemaVersion,
	}

	scalars := make([]map[string]float64, len(samples))
	vectors := make([]map[string][]float64, len(samples))
	for i, s := range samples {
		scalars[i], vectors[i] = s.Scalars(), s.Vectors()
	}

	values := make([]float64, len(samples))
	for name := range scalars[0] {
		for i := range samples {
			values[i] = scalars[i][name]
		}
		p.Scalars[name] = scalarStat(values)
	}

	for name, first := range vectors[0] {
		dim := len(first)
		vs := VectorStat{
			Mean:   make([]float64, dim),
			Std:    make([]float64, dim),
			Median: make([]float64, dim),
		}
		for d := range dim {
			for i := range samples {
				v := vectors[i][name]
				if len(v) != dim {
					return nil, fmt.Errorf("%w: feature %s has %d elements in one sample, %d in another",
						ErrIncompatibleProfile, name, len(v), dim)
				}
				values[i] = v[d]
			}
			st := scalarStat(values)
			vs.Mean[d], vs.Std[d], vs.Median[d] = st.Mean, st.Std, st.Median
		}
		p.Vectors[name] = vs
	}

	p.Hash = p.ComputeHash()
	return p, nil
}

// scalarStat summarizes values. Values are sorted first so that the
// floating-point result is identical for any input order.
func scalarStat(values []float64) ScalarStat {
	sorted := sortedCopy(values)
	mean, std := meanStd(sorted)
	return ScalarStat{
		Mean:   mean,
		Std:    std,
		Median: percentile(sorted, 50),
		Q25:    percentile(sorted, 25),
		Q75:    percentile(sorted, 75),
	}
}

// ComputeHash returns the hex SHA-256 of the canonical JSON encoding of the
// user and the most discriminative features. It is a tamper-evidence
// checksum, not an authenticator.
func (p *Profile) ComputeHash() string {
	mfcc, _ := p.Vector(FeatureMFCCMean)
	doc := map[string]any{
		"user":     p.User,
		"mfcc":     mfcc,
		"f0":       p.Scalars[FeatureF0Mean].Mean,
		"spectral": p.Scalars[FeatureSpectralCentroidMean].Mean,
	}
	// encoding/json sorts map keys, which makes the encoding canonical.
	data, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CheckIntegrity verifies the stored hash.
func (p *Profile) CheckIntegrity() error {
	if got := p.ComputeHash(); got != p.Hash {
		return fmt.Errorf("%w: user %q: stored %.12s, computed %.12s", ErrIntegrity, p.User, p.Hash, got)
	}
	return nil
}

// CheckCompatible verifies that p was written by this schema version and
// carries every feature the scorers need with the expected dimensions.
func (p *Profile) CheckCompatible(cfg Config) error {
	if p.Version != SchemaVersion {
		return fmt.Errorf("%w: user %q has schema %q, want %q; re-enroll", ErrIncompatibleProfile, p.User, p.Version, SchemaVersion)
	}
	if p.SampleCount < MinSamples {
		return fmt.Errorf("%w: user %q built from %d samples", ErrIncompatibleProfile, p.User, p.SampleCount)
	}
	dims := map[string]int{
		FeatureMFCCMean:    cfg.Features.NumMFCC,
		FeatureMFCCStd:     cfg.Features.NumMFCC,
		FeatureMFCCDelta:   cfg.Features.NumMFCC,
		FeatureChromaMean:  ChromaBins,
		FeatureTonnetzMean: TonnetzDims,
	}
	for name, dim := range dims {
		v, ok := p.Vectors[name]
		if !ok || len(v.Mean) != dim {
			return fmt.Errorf("%w: user %q feature %s has %d elements, want %d", ErrIncompatibleProfile, p.User, name, len(v.Mean), dim)
		}
	}
	for name := range (&FeatureVector{}).Scalars() {
		if _, ok := p.Scalars[name]; !ok {
			return fmt.Errorf("%w: user %q missing feature %s", ErrIncompatibleProfile, p.User, name)
		}
	}
	return nil
}
