package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/pkg/audio/wavfile"
	"github.com/haivivi/voicegate/pkg/cli"
	"github.com/haivivi/voicegate/pkg/voiceauth"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

var (
	enrollClips   []string
	enrollMic     bool
	enrollSamples int
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <user>",
	Short: "Enroll a user",
	Long: `Enroll a user from WAV recordings or the microphone.

Each clip must pass the enrollment quality gate (enough speech, SNR
and duration). Rejected clips are reported and skipped; with --mic the
recording is retried up to three times per requested sample. At least
two accepted clips are needed; with --clip every file is one attempt. Enrolling an existing user replaces the
profile and keeps the previous one as backup.

Examples:
  voicegate enroll alice --clip a1.wav --clip a2.wav --clip a3.wav
  voicegate enroll alice --mic --samples 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if !enrollMic && len(enrollClips) == 0 {
			return errors.New("no input: pass --clip FILE.wav or --mic")
		}
		svc, closeSvc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeSvc()

		var (
			res       *voiceauth.EnrollResult
			enrollErr error
		)
		if enrollMic {
			capturer, closeCapturer, err := openCapturer(cfg, enrollClips, enrollMic)
			if err != nil {
				return err
			}
			defer closeCapturer()
			samples := enrollSamples
			if samples == 0 {
				samples = cfg.Capture.Samples
			}
			res, enrollErr = svc.EnrollLive(cmd.Context(), args[0], capturer,
				voiceauth.EnrollOptions{Samples: samples, Duration: captureDuration(cfg)})
		} else {
			clips := make([]voiceprint.Clip, 0, len(enrollClips))
			for _, path := range enrollClips {
				clip, err := wavfile.Read(path)
				if err != nil {
					return err
				}
				clips = append(clips, clip)
			}
			res, enrollErr = svc.Enroll(cmd.Context(), args[0], clips)
		}
		if res != nil {
			if err := output(cmd, res, func(r *cli.Reporter) string { return r.Enrollment(res) }); err != nil {
				return err
			}
		}
		return enrollErr
	},
}

func init() {
	enrollCmd.Flags().StringArrayVar(&enrollClips, "clip", nil, "WAV file to enroll from (repeatable)")
	enrollCmd.Flags().BoolVar(&enrollMic, "mic", false, "record from the default microphone")
	enrollCmd.Flags().IntVar(&enrollSamples, "samples", 0, "samples to record with --mic (2-10, default from config)")
	rootCmd.AddCommand(enrollCmd)
}
