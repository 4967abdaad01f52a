package voiceprint

import (
	"fmt"
	"math"

	"github.com/haivivi/voicegate/pkg/audio/fbank"
)

// snrEpsilon keeps the noise power strictly positive.
const snrEpsilon = 1e-10

// QualityReport describes how speech-like a processed clip is.
type QualityReport struct {
	SpeechRatio float64  `json:"speech_ratio"`
	SNR         float64  `json:"snr_db"`
	Duration    float64  `json:"duration_s"`
	Passes      bool     `json:"passes"`
	Reasons     []string `json:"reasons,omitempty"`
}

// VAD is the frame-energy voice-activity detector. Frames whose RMS exceeds
// the configured percentile of all frame RMS values count as voiced.
type VAD struct {
	cfg VADConfig
}

// NewVAD creates a VAD.
func NewVAD(cfg VADConfig) VAD {
	return VAD{cfg: cfg}
}

// FrameRMS returns the RMS energy of each centered analysis frame.
func (v VAD) FrameRMS(clip ProcessedClip) []float64 {
	frameLen := max(1, int(math.Round(v.cfg.FrameMs/1000*float64(clip.SampleRate))))
	hop := max(1, int(math.Round(v.cfg.HopMs/1000*float64(clip.SampleRate))))
	frames := fbank.Frames(clip.Samples, frameLen, hop, true)
	rms := make([]float64, len(frames))
	for i, f := range frames {
		rms[i] = frameRMS(f)
	}
	return rms
}

// Analyze returns the voiced-frame ratio and the voiced/unvoiced energy
// ratio in dB. With no voiced frames the SNR is 0.
func (v VAD) Analyze(clip ProcessedClip) (speechRatio, snrDB float64) {
	rms := v.FrameRMS(clip)
	if len(rms) == 0 {
		return 0, 0
	}
	threshold := percentile(sortedCopy(rms), v.cfg.Percentile)

	var voiced, unvoiced []float64
	for _, r := range rms {
		if r > threshold {
			voiced = append(voiced, r*r)
		} else {
			unvoiced = append(unvoiced, r*r)
		}
	}
	speechRatio = float64(len(voiced)) / float64(len(rms))
	if len(voiced) == 0 {
		return speechRatio, 0
	}
	signal, _ := meanStd(voiced)
	noise, _ := meanStd(unvoiced)
	return speechRatio, 10 * math.Log10(signal/(noise+snrEpsilon))
}

// QualityGate applies one operating point on top of the shared VAD.
type QualityGate struct {
	vad  VAD
	gate GateConfig
}

// NewQualityGate creates a gate for the given operating point.
func NewQualityGate(vad VADConfig, gate GateConfig) *QualityGate {
	return &QualityGate{vad: NewVAD(vad), gate: gate}
}

// EnrollGate returns the strict enrollment gate of cfg.
func EnrollGate(cfg Config) *QualityGate { return NewQualityGate(cfg.VAD, cfg.EnrollGate) }

// VerifyGate returns the lenient verification gate of cfg.
func VerifyGate(cfg Config) *QualityGate { return NewQualityGate(cfg.VAD, cfg.VerifyGate) }

// Enforced reports whether failing clips must be rejected.
func (g *QualityGate) Enforced() bool { return g.gate.Enforce }

// Check measures clip against the operating point.
func (g *QualityGate) Check(clip ProcessedClip) QualityReport {
	ratio, snr := g.vad.Analyze(clip)
	r := QualityReport{
		SpeechRatio: ratio,
		SNR:         snr,
		Duration:    clip.Seconds(),
	}
	if r.SpeechRatio < g.gate.MinSpeechRatio {
		r.Reasons = append(r.Reasons, fmt.Sprintf("speech ratio %.2f below %.2f", r.SpeechRatio, g.gate.MinSpeechRatio))
	}
	if r.SNR < g.gate.MinSNR {
		r.Reasons = append(r.Reasons, fmt.Sprintf("snr %.1f dB below %.1f dB", r.SNR, g.gate.MinSNR))
	}
	if r.Duration < g.gate.MinDuration {
		r.Reasons = append(r.Reasons, fmt.Sprintf("duration %.2fs below %.2fs", r.Duration, g.gate.MinDuration))
	}
	r.Passes = len(r.Reasons) == 0
	return r
}

// Gate checks clip and returns a *QualityError when the gate is enforced
// and the clip fails.
func (g *QualityGate) Gate(clip ProcessedClip) (QualityReport, error) {
	r := g.Check(clip)
	if !r.Passes && g.gate.Enforce {
		return r, &QualityError{Report: r}
	}
	return r, nil
}

func frameRMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range frame {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}
