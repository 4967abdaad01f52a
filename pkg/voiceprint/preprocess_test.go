package voiceprint_test

import (
	"errors"
	"math"
	"testing"

	"github.com/haivivi/voicegate/pkg/audio/synth"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

func TestProcessTargetRateAndMono(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	stereo := func(rate int) voiceprint.Clip {
		mono := synth.Tone(440, 1, rate, 0.5)
		x := make([]float64, 0, 2*len(mono.Samples))
		for _, s := range mono.Samples {
			x = append(x, s, 0.5*s)
		}
		return voiceprint.Clip{SampleRate: rate, Channels: 2, Samples: x}
	}
	tests := []struct {
		name string
		clip voiceprint.Clip
	}{
		{"16k mono", synth.Tone(440, 1, 16000, 0.5)},
		{"8k mono", synth.Tone(440, 1, 8000, 0.5)},
		{"44.1k stereo", stereo(44100)},
		{"48k stereo", stereo(48000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := process(t, cfg, tt.clip)
			if pc.SampleRate != cfg.TargetSampleRate {
				t.Fatalf("rate = %d, want %d", pc.SampleRate, cfg.TargetSampleRate)
			}
			want := int(math.Round(float64(tt.clip.Frames()) * 16000 / float64(tt.clip.SampleRate)))
			if len(pc.Samples) != want {
				t.Errorf("got %d samples, want %d (one channel)", len(pc.Samples), want)
			}
			if math.Abs(pc.Seconds()-1) > 0.01 {
				t.Errorf("duration = %f, want 1s", pc.Seconds())
			}
		})
	}
}

func TestProcessNormalizesAndRemovesDC(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	clip := synth.Tone(1000, 1, 16000, 0.1)
	for i := range clip.Samples {
		clip.Samples[i] += 0.05
	}
	pc := process(t, cfg, clip)

	mean, peak := 0.0, 0.0
	for _, v := range pc.Samples {
		mean += v
		peak = max(peak, math.Abs(v))
	}
	mean /= float64(len(pc.Samples))
	if math.Abs(mean) > 1e-9 {
		t.Errorf("mean = %g, want 0", mean)
	}
	// Filter ringing may overshoot slightly.
	if peak < 0.5 || peak > 1.1 {
		t.Errorf("peak = %f, want ~1", peak)
	}
}

func TestProcessSilenceStaysSilent(t *testing.T) {
	pc := process(t, voiceprint.DefaultConfig(), synth.Silence(1, 16000))
	for i, v := range pc.Samples {
		if v != 0 {
			t.Fatalf("sample %d = %g, want 0", i, v)
		}
	}
}

func TestProcessEmpty(t *testing.T) {
	p := voiceprint.NewPreprocessor(voiceprint.DefaultConfig())
	_, err := p.Process(voiceprint.Clip{SampleRate: 16000, Channels: 1})
	if !errors.Is(err, voiceprint.ErrPreprocess) {
		t.Fatalf("err = %v, want ErrPreprocess", err)
	}
	_, err = p.Process(voiceprint.Clip{Channels: 1, Samples: []float64{1}})
	if !errors.Is(err, voiceprint.ErrPreprocess) {
		t.Fatalf("err = %v, want ErrPreprocess for zero rate", err)
	}
}

func TestProcessSkipsDegenerateBand(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	cfg.TargetSampleRate = 160 // Nyquist 80 Hz, so low >= high.
	clip := voiceprint.Clip{SampleRate: 160, Channels: 1, Samples: []float64{0, 2, 0, -2, 0, 2, 0, -2}}
	pc := process(t, cfg, clip)
	want := []float64{0, 1, 0, -1, 0, 1, 0, -1}
	for i, v := range want {
		if math.Abs(pc.Samples[i]-v) > 1e-12 {
			t.Fatalf("samples = %v, want %v", pc.Samples, want)
		}
	}
}
