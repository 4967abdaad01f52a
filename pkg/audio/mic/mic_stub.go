//go:build !portaudio

package mic

import (
	"context"
	"time"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Available reports whether microphone capture is compiled in.
const Available = false

// Mic is unavailable in this build.
type Mic struct{}

// New returns ErrUnavailable.
func New(rate, channels int) (*Mic, error) {
	return nil, ErrUnavailable
}

// Capture returns ErrUnavailable.
func (m *Mic) Capture(ctx context.Context, d time.Duration) (voiceprint.Clip, error) {
	return voiceprint.Clip{}, ErrUnavailable
}

// Close is a no-op.
func (m *Mic) Close() error { return nil }
