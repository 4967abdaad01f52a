package voiceauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/haivivi/voicegate/pkg/profilestore"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Live enrollment bounds.
const (
	DefaultSamples        = 3
	MaxSamples            = 10
	DefaultSampleDuration = 3 * time.Second
	// AttemptsPerSample is the default capture attempt budget per
	// requested sample.
	AttemptsPerSample = 3
)

// Rejection records why one enrollment sample was discarded.
type Rejection struct {
	Attempt int                       `json:"attempt"`
	Reason  string                    `json:"reason"`
	Quality *voiceprint.QualityReport `json:"quality,omitempty"`
}

// EnrollResult summarizes an enrollment session.
type EnrollResult struct {
	ID       string              `json:"id"`
	User     string              `json:"user"`
	Accepted int                 `json:"accepted"`
	Attempts int                 `json:"attempts"`
	Rejected []Rejection         `json:"rejected,omitempty"`
	Profile  *voiceprint.Profile `json:"profile"`
}

// EnrollOptions controls a live enrollment session.
type EnrollOptions struct {
	// Samples is the number of accepted clips to collect, clamped to
	// [2, 10]. Zero selects DefaultSamples.
	Samples int
	// Duration is the length of each capture. Zero selects
	// DefaultSampleDuration.
	Duration time.Duration
	// MaxAttempts caps the number of captures. Zero selects
	// Samples*AttemptsPerSample.
	MaxAttempts int
}

func (o EnrollOptions) normalized() EnrollOptions {
	if o.Samples == 0 {
		o.Samples = DefaultSamples
	}
	o.Samples = min(max(o.Samples, voiceprint.MinSamples), MaxSamples)
	if o.Duration <= 0 {
		o.Duration = DefaultSampleDuration
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = o.Samples * AttemptsPerSample
	}
	o.MaxAttempts = max(o.MaxAttempts, o.Samples)
	return o
}

// session accumulates the samples of one enrollment.
type session struct {
	result   *EnrollResult
	features []*voiceprint.FeatureVector
	clips    []voiceprint.Clip
	started  time.Time
}

// Enroll builds and saves a profile for user from clips. Clips failing
// preprocessing, the enrollment quality gate or feature extraction are
// discarded; at least two must be accepted.
func (s *Service) Enroll(ctx context.Context, user string, clips []voiceprint.Clip) (*EnrollResult, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: empty user", profilestore.ErrInvalidUser)
	}
	sess := s.newSession(user)
	ex := s.extractor()
	for _, clip := range clips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.addSample(sess, ex, clip)
	}
	return s.finish(ctx, sess)
}

// EnrollLive captures clips from c until opts.Samples are accepted or the
// attempt budget is spent, then builds and saves the profile. Enrollment
// succeeds with fewer samples than requested as long as two were
// accepted. A capturer returning io.EOF ends the session early.
func (s *Service) EnrollLive(ctx context.Context, user string, c Capturer, opts EnrollOptions) (*EnrollResult, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: empty user", profilestore.ErrInvalidUser)
	}
	opts = opts.normalized()
	sess := s.newSession(user)
	ex := s.extractor()

	for sess.result.Accepted < opts.Samples && sess.result.Attempts < opts.MaxAttempts {
		attempt := sess.result.Attempts + 1
		s.logger.Info("voiceauth: recording sample",
			"user", user, "sample", sess.result.Accepted+1, "of", opts.Samples,
			"attempt", attempt, "max_attempts", opts.MaxAttempts)

		clip, err := s.capture(ctx, c, opts.Duration)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				s.logger.Info("voiceauth: capture source exhausted", "user", user, "attempts", sess.result.Attempts)
				break
			}
			sess.result.Attempts++
			s.reject(sess, fmt.Sprintf("capture: %v", err), nil)
			continue
		}
		s.addSample(sess, ex, clip)
	}

	if sess.result.Accepted < opts.Samples {
		s.logger.Warn("voiceauth: enrollment incomplete",
			"user", user, "accepted", sess.result.Accepted, "requested", opts.Samples,
			"attempts", sess.result.Attempts)
	}
	return s.finish(ctx, sess)
}

func (s *Service) newSession(user string) *session {
	return &session{result: &EnrollResult{ID: s.newID(), User: user}, started: s.now()}
}

// addSample runs one clip through the enrollment pipeline.
func (s *Service) addSample(sess *session, ex *voiceprint.Extractor, clip voiceprint.Clip) {
	sess.result.Attempts++
	processed, err := s.pre.Process(clip)
	if err != nil {
		s.reject(sess, err.Error(), nil)
		return
	}
	report, err := s.enrollGate.Gate(processed)
	if err != nil {
		s.reject(sess, err.Error(), &report)
		return
	}
	fv, err := ex.Extract(processed)
	if err != nil {
		s.reject(sess, err.Error(), &report)
		return
	}
	sess.features = append(sess.features, fv)
	sess.clips = append(sess.clips, clip)
	sess.result.Accepted++
	s.metrics.sample(true)
	s.logger.Info("voiceauth: sample accepted",
		"user", sess.result.User, "attempt", sess.result.Attempts,
		"speech_ratio", report.SpeechRatio, "snr_db", report.SNR, "f0_mean", fv.F0Mean)
}

func (s *Service) reject(sess *session, reason string, q *voiceprint.QualityReport) {
	sess.result.Rejected = append(sess.result.Rejected, Rejection{
		Attempt: sess.result.Attempts,
		Reason:  reason,
		Quality: q,
	})
	s.metrics.sample(false)
	s.logger.Warn("voiceauth: sample rejected",
		"user", sess.result.User, "attempt", sess.result.Attempts, "reason", reason)
}

// finish aggregates the accepted samples, transcribes them and saves the
// profile.
func (s *Service) finish(ctx context.Context, sess *session) (*EnrollResult, error) {
	r := sess.result
	p, err := voiceprint.Aggregate(r.User, sess.features)
	if err != nil {
		s.metrics.enrollment(false)
		return r, fmt.Errorf("voiceauth: enroll %q: %d of %d samples accepted: %w",
			r.User, r.Accepted, r.Attempts, err)
	}
	p.CreatedAt = s.now().UTC()
	for _, clip := range sess.clips {
		p.Transcripts = append(p.Transcripts, s.transcript(ctx, clip))
	}

	if err := s.store.Save(ctx, r.User, p); err != nil {
		s.metrics.enrollment(false)
		return r, fmt.Errorf("voiceauth: save profile %q: %w", r.User, err)
	}
	r.Profile = p
	s.metrics.enrollment(true)
	s.metrics.observe("enroll", s.now().Sub(sess.started))
	s.logger.Info("voiceauth: enrolled",
		"user", r.User, "samples", p.SampleCount, "attempts", r.Attempts, "hash", p.Hash)
	return r, nil
}

// RestoreBackup makes the backed-up profile of user current again. The
// replaced profile becomes the new backup.
func (s *Service) RestoreBackup(ctx context.Context, user string) (*voiceprint.Profile, error) {
	p, err := s.store.LoadBackup(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := p.CheckIntegrity(); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, user, p); err != nil {
		return nil, fmt.Errorf("voiceauth: restore %q: %w", user, err)
	}
	s.logger.Info("voiceauth: restored backup", "user", user, "hash", p.Hash)
	return p, nil
}
