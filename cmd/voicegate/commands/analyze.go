package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/pkg/audio/wavfile"
	"github.com/haivivi/voicegate/pkg/cli"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <clip.wav>",
	Short: "Report clip quality and features",
	Long: `Run a WAV file through preprocessing, both quality gates and feature
extraction without touching any profile. Use it to check a recording
setup before enrolling.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clip, err := wavfile.Read(args[0])
		if err != nil {
			return err
		}
		svc, closeSvc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeSvc()

		a, err := svc.Analyze(cmd.Context(), clip)
		if err != nil {
			return err
		}
		return output(cmd, a, func(r *cli.Reporter) string { return r.Analysis(a) })
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
