//go:build portaudio

package mic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Available reports whether microphone capture is compiled in.
const Available = true

var (
	initOnce sync.Once
	initErr  error
)

// Mic records from the default input device.
type Mic struct {
	rate     int
	channels int
	mu       sync.Mutex
}

// New returns a Mic recording at rate with the given channel count.
func New(rate, channels int) (*Mic, error) {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
	})
	if initErr != nil {
		return nil, fmt.Errorf("mic: initialize portaudio: %w", initErr)
	}
	return &Mic{rate: rate, channels: max(1, channels)}, nil
}

// Capture records d of audio. It returns early with ctx's error if ctx is
// done before the recording completes.
func (m *Mic) Capture(ctx context.Context, d time.Duration) (voiceprint.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]float32, framesPerBuffer(m.rate)*m.channels)
	stream, err := portaudio.OpenDefaultStream(m.channels, 0, float64(m.rate), len(buf)/m.channels, buf)
	if err != nil {
		return voiceprint.Clip{}, fmt.Errorf("mic: open stream: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return voiceprint.Clip{}, fmt.Errorf("mic: start stream: %w", err)
	}
	defer stream.Stop()

	want := framesFor(d, m.rate) * m.channels
	samples := make([]float64, 0, want)

	type result struct{ err error }
	done := make(chan result, 1)
	stop := make(chan struct{})
	go func() {
		for len(samples) < want {
			select {
			case <-stop:
				done <- result{ctx.Err()}
				return
			default:
			}
			if err := stream.Read(); err != nil {
				done <- result{fmt.Errorf("mic: read: %w", err)}
				return
			}
			for _, s := range buf {
				if len(samples) == want {
					break
				}
				samples = append(samples, float64(s))
			}
		}
		done <- result{}
	}()

	select {
	case <-ctx.Done():
		close(stop)
		<-done
		return voiceprint.Clip{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return voiceprint.Clip{}, r.err
		}
	}
	slog.Debug("mic: captured", "frames", len(samples)/m.channels, "rate", m.rate)
	return voiceprint.Clip{SampleRate: m.rate, Channels: m.channels, Samples: samples}, nil
}

// Close releases the PortAudio library.
func (m *Mic) Close() error {
	return portaudio.Terminate()
}
