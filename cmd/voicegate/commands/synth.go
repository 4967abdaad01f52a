package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/pkg/audio/synth"
	"github.com/haivivi/voicegate/pkg/audio/wavfile"
)

var (
	synthPitch    float64
	synthSeconds  float64
	synthRate     int
	synthSeed     uint64
	synthBright   bool
	synthSilence  bool
	synthSyllable float64
)

var synthCmd = &cobra.Command{
	Use:   "synth <out.wav>",
	Short: "Render a synthetic voice clip",
	Long: `Render a deterministic voice-like clip for trying out the pipeline
without a microphone. Clips of the same voice with different seeds
verify against each other; a different pitch or --bright does not.

Examples:
  voicegate synth a1.wav --seed 1
  voicegate synth other.wav --pitch 320 --bright`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if synthSeconds <= 0 || synthRate <= 0 {
			return fmt.Errorf("--seconds and --rate must be positive")
		}
		clip := synth.Silence(synthSeconds, synthRate)
		if !synthSilence {
			v := synth.Voice{Pitch: synthPitch, SyllableRate: synthSyllable, Seed: synthSeed}
			if synthBright {
				v.Formants = synth.BrightFormants
			}
			clip = v.Render(synthSeconds, synthRate)
		}
		if err := wavfile.Write(args[0], clip); err != nil {
			return err
		}
		return output(cmd, map[string]any{
			"path":        args[0],
			"sample_rate": synthRate,
			"seconds":     synthSeconds,
		}, nil)
	},
}

func init() {
	f := synthCmd.Flags()
	f.Float64Var(&synthPitch, "pitch", 150, "fundamental frequency in Hz")
	f.Float64Var(&synthSeconds, "seconds", 3, "clip length")
	f.IntVar(&synthRate, "rate", 16000, "sample rate")
	f.Uint64Var(&synthSeed, "seed", 1, "noise and jitter seed")
	f.BoolVar(&synthBright, "bright", false, "use the bright formant envelope")
	f.BoolVar(&synthSilence, "silence", false, "render silence instead of a voice")
	f.Float64Var(&synthSyllable, "syllable-rate", 0, "syllables per second (default 1.25)")
	rootCmd.AddCommand(synthCmd)
}
