// Package voiceprint turns recorded speech into a speaker profile and
// decides whether a later recording was spoken by the same person.
//
// # Pipeline
//
// Every clip flows through the same deterministic stages:
//
//  1. Preprocessor.Process: raw Clip → ProcessedClip (16 kHz mono,
//     peak-normalized, 80 Hz–8 kHz zero-phase bandpass, DC removed)
//  2. QualityGate.Check: ProcessedClip → QualityReport (energy VAD
//     speech ratio, SNR, duration)
//  3. Extractor.Extract: ProcessedClip → FeatureVector (pitch, MFCC,
//     spectral shape, chroma/tonnetz, temporal descriptors)
//
// Enrollment aggregates two or more FeatureVectors into a Profile with
// Aggregate. Verification scores a live FeatureVector against a Profile
// with an Engine (multi-metric, weighted, adaptive thresholds) or a
// SimpleComparator (standardized distance, binary decision).
//
// # Operating Points
//
// Enrollment and verification share one VAD computation but apply
// different gates: the enrollment gate is strict and enforced, the
// verification gate is lenient and only flags low-quality clips.
//
// # Concurrency
//
// Preprocessor, QualityGate, Engine and SimpleComparator are stateless and
// safe for concurrent use. An Extractor holds FFT scratch buffers and must
// not be shared between goroutines.
package voiceprint

import (
	"fmt"
	"time"
)

// SchemaVersion identifies the feature set and profile layout. Profiles
// with any other version must be re-enrolled.
const SchemaVersion = "2.0"

// Clip is captured audio: interleaved float samples at SampleRate.
type Clip struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// Frames returns the number of sample frames (samples per channel).
func (c Clip) Frames() int {
	if c.Channels <= 1 {
		return len(c.Samples)
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Frames()) / float64(c.SampleRate) * float64(time.Second))
}

// ProcessedClip is a canonical mono clip at the pipeline's target rate.
type ProcessedClip struct {
	SampleRate int
	Samples    []float64
}

// Seconds returns the clip length in seconds.
func (c ProcessedClip) Seconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Confidence grades a verification decision.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceReject Confidence = "reject"
)

// Accepted reports whether c is at least the low tier.
func (c Confidence) Accepted() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// Mode selects the verification scorer.
type Mode string

const (
	// ModeMulti is the weighted multi-metric engine.
	ModeMulti Mode = "multi"
	// ModeSimple is the reduced-feature standardized distance comparator.
	ModeSimple Mode = "simple"
)

// ParseMode parses a mode name; the empty string selects ModeMulti.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMulti:
		return ModeMulti, nil
	case ModeSimple:
		return ModeSimple, nil
	}
	return "", fmt.Errorf("voiceprint: unknown mode %q", s)
}

// VerificationResult is the outcome of one verification attempt. A clip
// that is not verified is a normal result with Verified false and Reason
// set, never an error.
type VerificationResult struct {
	ID         string             `json:"id"`
	User       string             `json:"target_user"`
	Verified   bool               `json:"verified"`
	Confidence Confidence         `json:"confidence"`
	Score      float64            `json:"similarity_score"`
	Distance   float64            `json:"distance"`
	Mode       Mode               `json:"mode"`
	Scores     map[string]float64 `json:"detailed_scores"`
	Threshold  float64            `json:"threshold"`
	Transcript string             `json:"transcript"`
	Quality    *QualityReport     `json:"quality,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Verifier scores a live feature vector against a stored profile.
type Verifier interface {
	Verify(live *FeatureVector, p *Profile) *VerificationResult
}
