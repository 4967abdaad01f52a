package commands

import (
	"errors"
	"time"

	"github.com/haivivi/voicegate/cmd/voicegate/internal/config"
	"github.com/haivivi/voicegate/pkg/audio/mic"
	"github.com/haivivi/voicegate/pkg/audio/wavfile"
	"github.com/haivivi/voicegate/pkg/voiceauth"
)

// openCapturer returns a capturer over clips, or the microphone when
// useMic is set. The close function releases the device.
func openCapturer(cfg *config.Config, clips []string, useMic bool) (voiceauth.Capturer, func(), error) {
	switch {
	case useMic && len(clips) > 0:
		return nil, nil, errors.New("--mic and --clip are mutually exclusive")
	case useMic:
		if !mic.Available {
			return nil, nil, mic.ErrUnavailable
		}
		m, err := mic.New(cfg.Capture.SampleRate, cfg.Capture.Channels)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { m.Close() }, nil
	case len(clips) == 0:
		return nil, nil, errors.New("no input: pass --clip FILE.wav or --mic")
	}
	return wavfile.NewSequence(clips...), func() {}, nil
}

func captureDuration(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Capture.Seconds * float64(time.Second))
}
