package voiceprint

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPreprocess is returned for empty or malformed input clips.
	ErrPreprocess = errors.New("voiceprint: cannot preprocess clip")

	// ErrQualityRejected is matched by every *QualityError.
	ErrQualityRejected = errors.New("voiceprint: clip rejected by quality gate")

	// ErrFeatureExtraction is returned when no usable feature vector can be
	// produced, e.g. the clip is shorter than the minimum sample count.
	ErrFeatureExtraction = errors.New("voiceprint: feature extraction failed")

	// ErrInsufficientSamples is returned when fewer than two accepted
	// samples are available for a profile.
	ErrInsufficientSamples = errors.New("voiceprint: insufficient samples")

	// ErrIncompatibleProfile is returned for profiles written by a
	// different schema version or with a different feature layout.
	ErrIncompatibleProfile = errors.New("voiceprint: incompatible profile")

	// ErrIntegrity is returned when a profile's hash does not match its
	// contents. It also matches ErrIncompatibleProfile.
	ErrIntegrity = fmt.Errorf("%w: integrity check failed", ErrIncompatibleProfile)
)

// QualityError reports a clip rejected by an enforced quality gate.
type QualityError struct {
	Report QualityReport
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("voiceprint: clip rejected by quality gate: %s", strings.Join(e.Report.Reasons, "; "))
}

func (e *QualityError) Unwrap() error { return ErrQualityRejected }
