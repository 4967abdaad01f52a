package voiceprint_test

import (
	"errors"
	"math"
	"testing"

	"github.com/haivivi/voicegate/pkg/audio/synth"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

func checkDims(t *testing.T, fv *voiceprint.FeatureVector, numMFCC int) {
	t.Helper()
	want := map[string]int{
		voiceprint.FeatureMFCCMean:    numMFCC,
		voiceprint.FeatureMFCCStd:     numMFCC,
		voiceprint.FeatureMFCCDelta:   numMFCC,
		voiceprint.FeatureChromaMean:  voiceprint.ChromaBins,
		voiceprint.FeatureTonnetzMean: voiceprint.TonnetzDims,
	}
	for name, v := range fv.Vectors() {
		if len(v) != want[name] {
			t.Errorf("%s has %d elements, want %d", name, len(v), want[name])
		}
		for i, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				t.Errorf("%s[%d] = %f (not finite)", name, i, x)
			}
		}
	}
	for name, v := range fv.Scalars() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %f (not finite)", name, v)
		}
	}
}

func TestExtractFixedDimensions(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	ex := voiceprint.NewExtractor(cfg)
	clips := map[string]voiceprint.ProcessedClip{
		"minimum": {SampleRate: 16000, Samples: take(speaker, 1, 3).Samples[:1024]},
		"speech":  process(t, cfg, take(speaker, 2, 3)),
		"tone":    process(t, cfg, synth.Tone(220, 1, 16000, 0.5)),
		"silence": process(t, cfg, synth.Silence(1, 16000)),
		"long":    process(t, cfg, take(impostor, 3, 6)),
	}
	for name, pc := range clips {
		t.Run(name, func(t *testing.T) {
			fv, err := ex.Extract(pc)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			checkDims(t, fv, cfg.Features.NumMFCC)
		})
	}
}

func TestExtractTooShort(t *testing.T) {
	ex := voiceprint.NewExtractor(voiceprint.DefaultConfig())
	_, err := ex.Extract(voiceprint.ProcessedClip{SampleRate: 16000, Samples: make([]float64, 1023)})
	if !errors.Is(err, voiceprint.ErrFeatureExtraction) {
		t.Fatalf("err = %v, want ErrFeatureExtraction", err)
	}
}

func TestExtractPitch(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	tests := []struct {
		voice synth.Voice
		want  float64
	}{
		{speaker, 150},
		{synth.Voice{Pitch: 220}, 220},
	}
	for _, tt := range tests {
		fv := extract(t, cfg, take(tt.voice, 7, 3))
		if math.Abs(fv.F0Mean-tt.want) > 3 {
			t.Errorf("f0 mean = %.2f, want %.0f ± 3", fv.F0Mean, tt.want)
		}
		if fv.VoicingRatio <= 0.2 || fv.VoicingRatio >= 0.7 {
			t.Errorf("voicing ratio = %.2f for %g Hz", fv.VoicingRatio, tt.want)
		}
	}
}

func TestExtractSilenceIsUnvoiced(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	fv := extract(t, cfg, synth.Silence(2, 16000))
	if fv.F0Mean != 0 || fv.VoicingRatio != 0 {
		t.Errorf("silence f0 = %f, voicing = %f; want 0", fv.F0Mean, fv.VoicingRatio)
	}
	if fv.Tempo != cfg.Features.DefaultTempo {
		t.Errorf("silence tempo = %f, want default %f", fv.Tempo, cfg.Features.DefaultTempo)
	}
}

func TestExtractSpectralShape(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	dark := extract(t, cfg, take(speaker, 1, 3))
	bright := extract(t, cfg, take(impostor, 1, 3))
	if bright.SpectralCentroidMean <= dark.SpectralCentroidMean {
		t.Errorf("centroid: bright %.0f <= dark %.0f", bright.SpectralCentroidMean, dark.SpectralCentroidMean)
	}
	if dark.SpectralRolloffMean < dark.SpectralCentroidMean {
		t.Errorf("rolloff %.0f below centroid %.0f", dark.SpectralRolloffMean, dark.SpectralCentroidMean)
	}
	if bright.ZCRMean <= 0 || dark.RMSMean <= 0 {
		t.Errorf("temporal features not populated: %+v", dark)
	}
}

func TestExtractTempo(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	// 1.25 syllables per second is 75 beats per minute.
	fv := extract(t, cfg, take(speaker, 1, 6))
	if math.Abs(fv.Tempo-75) > 8 {
		t.Errorf("tempo = %.1f, want ~75", fv.Tempo)
	}
}
