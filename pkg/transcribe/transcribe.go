// Package transcribe turns clips into text for the diagnostic transcript
// stored with profiles and verification results. Transcripts never
// influence a decision.
package transcribe

import (
	"context"
	"errors"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Unavailable is the transcript recorded when no transcriber is configured
// or transcription fails.
const Unavailable = "[speech recognition unavailable]"

// ErrNoSpeech is returned when a service recognized no words.
var ErrNoSpeech = errors.New("transcribe: no speech recognized")

// Transcriber converts a clip to text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip voiceprint.Clip) (string, error)
}

// Nop always returns Unavailable.
type Nop struct{}

func (Nop) Transcribe(context.Context, voiceprint.Clip) (string, error) {
	return Unavailable, nil
}

// Func adapts a function to the Transcriber interface.
type Func func(ctx context.Context, clip voiceprint.Clip) (string, error)

func (f Func) Transcribe(ctx context.Context, clip voiceprint.Clip) (string, error) {
	return f(ctx, clip)
}
