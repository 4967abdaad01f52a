package voiceauth

import (
	"context"
	"errors"
	"time"

	"github.com/haivivi/voicegate/pkg/profilestore"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Analysis is the quality and feature breakdown of a single clip.
type Analysis struct {
	SampleRate   int                       `json:"sample_rate"`
	Channels     int                       `json:"channels"`
	Duration     float64                   `json:"duration_s"`
	Enroll       voiceprint.QualityReport  `json:"enroll_gate"`
	Verify       voiceprint.QualityReport  `json:"verify_gate"`
	Features     *voiceprint.FeatureVector `json:"features,omitempty"`
	FeatureError string                    `json:"feature_error,omitempty"`
}

// Analyze reports how clip fares under both quality gates and, when
// extraction succeeds, its feature vector.
func (s *Service) Analyze(ctx context.Context, clip voiceprint.Clip) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	processed, err := s.pre.Process(clip)
	if err != nil {
		return nil, err
	}
	a := &Analysis{
		SampleRate: clip.SampleRate,
		Channels:   clip.Channels,
		Duration:   clip.Duration().Seconds(),
		Enroll:     s.enrollGate.Check(processed),
		Verify:     s.verifyGate.Check(processed),
	}
	fv, err := s.extractor().Extract(processed)
	if err != nil {
		a.FeatureError = err.Error()
	} else {
		a.Features = fv
	}
	return a, nil
}

// ProfileCheck is the health report of a stored profile.
type ProfileCheck struct {
	User        string    `json:"user"`
	Version     string    `json:"version"`
	SampleCount int       `json:"sample_count"`
	CreatedAt   time.Time `json:"created_timestamp"`
	Hash        string    `json:"profile_hash"`
	Integrity   bool      `json:"integrity_ok"`
	Compatible  bool      `json:"compatible"`
	HasBackup   bool      `json:"has_backup"`
	Problems    []string  `json:"problems,omitempty"`
}

// OK reports whether the profile can be used for verification.
func (c *ProfileCheck) OK() bool { return c.Integrity && c.Compatible }

// CheckProfile verifies the integrity hash and schema compatibility of
// the profile of user.
func (s *Service) CheckProfile(ctx context.Context, user string) (*ProfileCheck, error) {
	p, err := s.store.Load(ctx, user)
	if err != nil {
		return nil, err
	}
	c := &ProfileCheck{
		User:        user,
		Version:     p.Version,
		SampleCount: p.SampleCount,
		CreatedAt:   p.CreatedAt,
		Hash:        p.Hash,
		Integrity:   true,
		Compatible:  true,
	}
	if err := p.CheckIntegrity(); err != nil {
		c.Integrity = false
		c.Problems = append(c.Problems, err.Error())
	}
	if err := p.CheckCompatible(s.cfg); err != nil {
		c.Compatible = false
		c.Problems = append(c.Problems, err.Error())
	}
	if p.User != user {
		c.Integrity = false
		c.Problems = append(c.Problems, "profile is stored under a different user id than it was enrolled for")
	}
	_, err = s.store.LoadBackup(ctx, user)
	switch {
	case err == nil:
		c.HasBackup = true
	case !errors.Is(err, profilestore.ErrProfileNotFound):
		return nil, err
	}
	return c, nil
}

// Profile returns the stored profile of user.
func (s *Service) Profile(ctx context.Context, user string) (*voiceprint.Profile, error) {
	return s.store.Load(ctx, user)
}

// Backup returns the backed-up profile of user.
func (s *Service) Backup(ctx context.Context, user string) (*voiceprint.Profile, error) {
	return s.store.LoadBackup(ctx, user)
}
