package voiceauth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Verify scores clip against the stored profile of user. A clip that does
// not match, has no speech, or yields no features is reported as a
// not-verified result with Reason set. Errors are returned only for a
// missing or unusable profile, a store failure, or an empty clip.
func (s *Service) Verify(ctx context.Context, user string, clip voiceprint.Clip) (*voiceprint.VerificationResult, error) {
	start := s.now()
	p, err := s.store.Load(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := p.CheckCompatible(s.cfg); err != nil {
		return nil, err
	}
	if err := p.CheckIntegrity(); err != nil {
		return nil, err
	}

	processed, err := s.pre.Process(clip)
	if err != nil {
		return nil, err
	}

	r, err := s.score(processed, p)
	if err != nil {
		return nil, err
	}
	r.ID = s.newID()
	r.Timestamp = s.now().UTC()
	r.Transcript = s.transcript(ctx, clip)

	s.metrics.verification(r)
	s.metrics.observe("verify", s.now().Sub(start))
	s.logger.Info("voiceauth: verified",
		"user", user, "verified", r.Verified, "confidence", r.Confidence,
		"score", r.Score, "distance", r.Distance, "mode", r.Mode, "reason", r.Reason)
	return r, nil
}

// score gates and scores a processed clip against p.
func (s *Service) score(processed voiceprint.ProcessedClip, p *voiceprint.Profile) (*voiceprint.VerificationResult, error) {
	report, gateErr := s.verifyGate.Gate(processed)
	reject := func(reason string) *voiceprint.VerificationResult {
		return &voiceprint.VerificationResult{
			User:       p.User,
			Confidence: voiceprint.ConfidenceReject,
			Mode:       s.cfg.Similarity.Mode,
			Quality:    &report,
			Reason:     reason,
		}
	}

	if report.SpeechRatio == 0 {
		return reject("no speech detected"), nil
	}
	if gateErr != nil {
		return reject(gateErr.Error()), nil
	}
	if !report.Passes {
		s.logger.Warn("voiceauth: low quality verification clip",
			"user", p.User, "reasons", strings.Join(report.Reasons, "; "))
	}

	fv, err := s.extractor().Extract(processed)
	if err != nil {
		return reject(err.Error()), nil
	}

	r := s.verifier.Verify(fv, p)
	r.Quality = &report
	switch {
	case !r.Verified:
		r.Reason = fmt.Sprintf("distance %.3f exceeds threshold %.3f", r.Distance, r.Threshold)
	case !report.Passes:
		r.Reason = "low quality clip: " + strings.Join(report.Reasons, "; ")
	}
	return r, nil
}

// VerifyLive captures a clip of duration d from c and verifies it.
func (s *Service) VerifyLive(ctx context.Context, user string, c Capturer, d time.Duration) (*voiceprint.VerificationResult, error) {
	if _, err := s.store.Load(ctx, user); err != nil {
		return nil, err
	}
	if d <= 0 {
		d = DefaultSampleDuration
	}
	s.logger.Info("voiceauth: recording verification clip", "user", user, "duration", d)
	clip, err := s.capture(ctx, c, d)
	if err != nil {
		return nil, fmt.Errorf("voiceauth: capture: %w", err)
	}
	return s.Verify(ctx, user, clip)
}
