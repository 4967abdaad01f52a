// Package voiceauth runs voice enrollment and verification end to end:
// capture or accept clips, preprocess, gate, extract, aggregate or score,
// transcribe, and persist profiles.
//
// A Service owns no global state; its configuration, store, transcriber
// and metrics are all passed in at construction. All methods are safe for
// concurrent use as long as the Store is.
package voiceauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/haivivi/voicegate/pkg/profilestore"
	"github.com/haivivi/voicegate/pkg/transcribe"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Capturer records a clip of roughly the requested duration. Capture must
// return promptly once ctx is done.
type Capturer interface {
	Capture(ctx context.Context, d time.Duration) (voiceprint.Clip, error)
}

// Service runs enrollment and verification against a profile store.
type Service struct {
	cfg         voiceprint.Config
	store       profilestore.Store
	transcriber transcribe.Transcriber
	logger      *slog.Logger
	metrics     *Metrics
	now         func() time.Time
	newID       func() string

	// captureSlack is added to the requested duration to bound a Capture
	// call.
	captureSlack time.Duration

	pre        *voiceprint.Preprocessor
	enrollGate *voiceprint.QualityGate
	verifyGate *voiceprint.QualityGate
	verifier   voiceprint.Verifier
}

// Option configures a Service.
type Option func(*Service)

// WithConfig replaces the default pipeline configuration.
func WithConfig(cfg voiceprint.Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTranscriber sets the transcriber used for diagnostic transcripts.
// Defaults to transcribe.Nop.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(s *Service) {
		if t != nil {
			s.transcriber = t
		}
	}
}

// WithMetrics registers the service metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) {
		if reg != nil {
			s.metrics = NewMetrics(reg)
		}
	}
}

// WithClock sets the time source used for profile and result timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCaptureSlack sets how much longer than the requested duration a
// Capture call may take before it is canceled. Defaults to 5s.
func WithCaptureSlack(d time.Duration) Option {
	return func(s *Service) { s.captureSlack = d }
}

// New creates a Service over store.
func New(store profilestore.Store, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:          voiceprint.DefaultConfig(),
		store:        store,
		transcriber:  transcribe.Nop{},
		logger:       slog.Default(),
		now:          time.Now,
		newID:        uuid.NewString,
		captureSlack: 5 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	if store == nil {
		return nil, fmt.Errorf("voiceauth: nil store")
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	s.cfg.Similarity.Mode, _ = voiceprint.ParseMode(string(s.cfg.Similarity.Mode))

	s.pre = voiceprint.NewPreprocessor(s.cfg, voiceprint.WithLogger(s.logger))
	s.enrollGate = voiceprint.EnrollGate(s.cfg)
	s.verifyGate = voiceprint.VerifyGate(s.cfg)
	switch s.cfg.Similarity.Mode {
	case voiceprint.ModeSimple:
		s.verifier = voiceprint.NewSimpleComparator(s.cfg)
	default:
		s.verifier = voiceprint.NewEngine(s.cfg)
	}
	return s, nil
}

// Metrics returns the service collectors, or nil when none were registered.
func (s *Service) Metrics() *Metrics { return s.metrics }

// Config returns the pipeline configuration.
func (s *Service) Config() voiceprint.Config { return s.cfg }

// ListEnrolledUsers returns the enrolled user ids in ascending order.
func (s *Service) ListEnrolledUsers(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// extractor returns a fresh Extractor; Extractors are not safe for
// concurrent use.
func (s *Service) extractor() *voiceprint.Extractor {
	return voiceprint.NewExtractor(s.cfg, voiceprint.WithLogger(s.logger))
}

// transcript returns the clip's transcript, or transcribe.Unavailable if
// transcription fails.
func (s *Service) transcript(ctx context.Context, clip voiceprint.Clip) string {
	text, err := s.transcriber.Transcribe(ctx, clip)
	if err != nil {
		s.logger.Warn("voiceauth: transcription failed", "error", err)
		return transcribe.Unavailable
	}
	return text
}

// capture records one clip, bounding the call by d plus the capture slack.
func (s *Service) capture(ctx context.Context, c Capturer, d time.Duration) (voiceprint.Clip, error) {
	ctx, cancel := context.WithTimeout(ctx, d+s.captureSlack)
	defer cancel()
	return c.Capture(ctx, d)
}
