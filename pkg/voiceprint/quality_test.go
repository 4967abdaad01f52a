package voiceprint_test

import (
	"errors"
	"testing"

	"github.com/haivivi/voicegate/pkg/audio/synth"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

func TestQualityDeterministic(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	pc := process(t, cfg, take(speaker, 1, 3))
	gate := voiceprint.EnrollGate(cfg)
	a, b := gate.Check(pc), gate.Check(pc)
	if a.SpeechRatio != b.SpeechRatio || a.SNR != b.SNR {
		t.Fatalf("reports differ: %+v vs %+v", a, b)
	}
}

func TestQualityVoicePasses(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	pc := process(t, cfg, take(speaker, 1, 3))
	for name, gate := range map[string]*voiceprint.QualityGate{
		"enroll": voiceprint.EnrollGate(cfg),
		"verify": voiceprint.VerifyGate(cfg),
	} {
		r := gate.Check(pc)
		if !r.Passes {
			t.Errorf("%s gate rejected synthetic speech: %+v", name, r)
		}
		if r.SpeechRatio <= 0.2 || r.SpeechRatio > 0.31 {
			t.Errorf("%s: speech ratio %f, want (0.2, 0.3]", name, r.SpeechRatio)
		}
		if r.SNR < 10 {
			t.Errorf("%s: snr %f dB, want >= 10", name, r.SNR)
		}
	}
}

func TestQualitySilenceRejectedByBothGates(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	pc := process(t, cfg, synth.Silence(3, 16000))
	for name, gate := range map[string]*voiceprint.QualityGate{
		"enroll": voiceprint.EnrollGate(cfg),
		"verify": voiceprint.VerifyGate(cfg),
	} {
		r := gate.Check(pc)
		if r.Passes {
			t.Errorf("%s gate passed silence: %+v", name, r)
		}
		if r.SpeechRatio != 0 || r.SNR != 0 {
			t.Errorf("%s: silence report %+v, want zero ratio and snr", name, r)
		}
	}
}

func TestQualityDuration(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	pc := process(t, cfg, take(speaker, 1, 1.5))
	if r := voiceprint.EnrollGate(cfg).Check(pc); r.Passes {
		t.Errorf("enroll gate passed a 1.5s clip: %+v", r)
	}
	if r := voiceprint.VerifyGate(cfg).Check(pc); !r.Passes {
		t.Errorf("verify gate rejected a 1.5s clip: %+v", r)
	}
}

func TestGateEnforcement(t *testing.T) {
	cfg := voiceprint.DefaultConfig()
	pc := process(t, cfg, synth.Silence(3, 16000))

	_, err := voiceprint.EnrollGate(cfg).Gate(pc)
	var qe *voiceprint.QualityError
	if !errors.As(err, &qe) || !errors.Is(err, voiceprint.ErrQualityRejected) {
		t.Fatalf("enroll Gate err = %v, want *QualityError", err)
	}
	if len(qe.Report.Reasons) == 0 {
		t.Error("expected rejection reasons")
	}

	r, err := voiceprint.VerifyGate(cfg).Gate(pc)
	if err != nil {
		t.Fatalf("verify Gate: %v, want flag only", err)
	}
	if r.Passes {
		t.Error("verify gate should flag silence")
	}
}
