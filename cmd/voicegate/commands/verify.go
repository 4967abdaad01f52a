package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/pkg/cli"
	"github.com/haivivi/voicegate/pkg/voiceauth"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

var (
	verifyClip   string
	verifyMic    bool
	verifyMode   string
	verifyLadder string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <user>",
	Short: "Verify a recording against an enrolled user",
	Long: `Verify a WAV recording or a microphone capture against the stored
profile of a user.

The multi-metric mode (default) scores cepstral, pitch, spectral,
temporal, harmonic and voicing similarity and grades the decision
high, medium, low or reject. The simple mode compares MFCC, pitch and
spectral centroid with a single standardized distance.

The command exits with status 2 when the recording is not verified.

Examples:
  voicegate verify alice --clip probe.wav
  voicegate verify alice --mic --mode simple
  voicegate verify alice --clip probe.wav --ladder fixed -o table`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		vcfg := cfg.Voiceprint
		if verifyMode != "" {
			mode, err := voiceprint.ParseMode(verifyMode)
			if err != nil {
				return err
			}
			vcfg.Similarity.Mode = mode
		}
		if verifyLadder != "" {
			vcfg.Similarity.Ladder = voiceprint.LadderKind(verifyLadder)
		}

		var clips []string
		if verifyClip != "" {
			clips = []string{verifyClip}
		}
		capturer, closeCapturer, err := openCapturer(cfg, clips, verifyMic)
		if err != nil {
			return err
		}
		defer closeCapturer()

		svc, closeSvc, err := openService(cmd, voiceauth.WithConfig(vcfg))
		if err != nil {
			return err
		}
		defer closeSvc()

		res, err := svc.VerifyLive(cmd.Context(), args[0], capturer, captureDuration(cfg))
		if err != nil {
			return err
		}
		if err := output(cmd, res, func(r *cli.Reporter) string { return r.Verification(res) }); err != nil {
			return err
		}
		if !res.Verified {
			return ErrNotVerified
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyClip, "clip", "", "WAV file to verify")
	verifyCmd.Flags().BoolVar(&verifyMic, "mic", false, "record from the default microphone")
	verifyCmd.Flags().StringVar(&verifyMode, "mode", "", "scoring mode: multi or simple (default from config)")
	verifyCmd.Flags().StringVar(&verifyLadder, "ladder", "", "confidence ladder: adaptive or fixed (default from config)")
	rootCmd.AddCommand(verifyCmd)
}
