package voiceprint_test

import (
	"testing"

	"github.com/haivivi/voicegate/pkg/audio/synth"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

var (
	speaker  = synth.Voice{Pitch: 150}
	impostor = synth.Voice{Pitch: 400, Formants: synth.BrightFormants, SyllableRate: 2, Duty: 0.6}
)

func process(t *testing.T, cfg voiceprint.Config, clip voiceprint.Clip) voiceprint.ProcessedClip {
	t.Helper()
	pc, err := voiceprint.NewPreprocessor(cfg).Process(clip)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return pc
}

func extract(t *testing.T, cfg voiceprint.Config, clip voiceprint.Clip) *voiceprint.FeatureVector {
	t.Helper()
	fv, err := voiceprint.NewExtractor(cfg).Extract(process(t, cfg, clip))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return fv
}

func take(v synth.Voice, seed uint64, seconds float64) voiceprint.Clip {
	v.Seed = seed
	return v.Render(seconds, 16000)
}

func enroll(t *testing.T, cfg voiceprint.Config, v synth.Voice, seeds ...uint64) *voiceprint.Profile {
	t.Helper()
	var samples []*voiceprint.FeatureVector
	for _, s := range seeds {
		samples = append(samples, extract(t, cfg, take(v, s, 3)))
	}
	p, err := voiceprint.Aggregate("alice", samples)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return p
}
