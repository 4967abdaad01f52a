package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/cmd/voicegate/internal/config"
	"github.com/haivivi/voicegate/pkg/cli"
	"github.com/haivivi/voicegate/pkg/voiceauth"
)

// ErrNotVerified is returned by verify when the clip is rejected. The
// process exits with status 2 without printing it.
var ErrNotVerified = errors.New("not verified")

var (
	// Global flags
	verbose      bool
	configPath   string
	formatOutput string
	jqExpr       string
	metricsFile  string

	// Global configuration (loaded on first use)
	globalConfig *config.Config

	// registry collects service metrics for --metrics-file.
	registry *prometheus.Registry
)

var rootCmd = &cobra.Command{
	Use:   "voicegate",
	Short: "Voice biometric enrollment and verification",
	Long: `voicegate - enroll speakers from a few short recordings and verify
later recordings against the stored voice profile.

Profiles are stored in the store configured in config.yaml (a JSON
document by default). Configuration lives in the OS config directory:
  macOS:   ~/Library/Application Support/voicegate/
  Linux:   ~/.config/voicegate/
  Windows: %AppData%/voicegate/

Examples:
  # Enroll from three recordings
  voicegate enroll alice --clip a1.wav --clip a2.wav --clip a3.wav

  # Verify a recording
  voicegate verify alice --clip probe.wav -o table

  # Only print the decision
  voicegate verify alice --clip probe.wav --jq .verified`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cli.ParseFormat(formatOutput); err != nil {
			return err
		}
		registry = prometheus.NewRegistry()
		return nil
	},
}

// Execute runs the root command. An interrupt cancels the command
// context, which stops a running capture.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx)
}

// execute runs the root command and then writes --metrics-file, also
// when the command failed.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if merr := writeMetrics(); err == nil {
		err = merr
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&configPath, "config", "", "config file (default: <user config dir>/voicegate/config.yaml)")
	pf.StringVarP(&formatOutput, "output", "o", "yaml", "output format: yaml, json or table")
	pf.StringVar(&jqExpr, "jq", "", "filter the result with a jq expression")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
}

// GetConfig returns the configuration, loading it on first use.
func GetConfig() (*config.Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config not available: %w", err)
	}
	globalConfig = cfg
	return cfg, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// newLogger builds the CLI logger: text to stderr at the configured
// level, or debug under --verbose.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openService opens the configured store and transcriber and returns a
// service over them. The returned close function releases the store.
func openService(cmd *cobra.Command, opts ...voiceauth.Option) (*voiceauth.Service, func(), error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cmd, cfg)
	store, err := cfg.OpenStore(logger)
	if err != nil {
		return nil, nil, err
	}
	tr, err := cfg.NewTranscriber(cmd.Context())
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	base := []voiceauth.Option{
		voiceauth.WithConfig(cfg.Voiceprint),
		voiceauth.WithLogger(logger),
		voiceauth.WithTranscriber(tr),
	}
	if registry != nil {
		base = append(base, voiceauth.WithMetrics(registry))
	}
	svc, err := voiceauth.New(store, append(base, opts...)...)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, func() {
		if err := store.Close(); err != nil {
			logger.Warn("voicegate: close store", "error", err)
		}
	}, nil
}

// output writes v in the selected format. table renders the styled
// report for -o table.
func output(cmd *cobra.Command, v any, table func(*cli.Reporter) string) error {
	format, _ := cli.ParseFormat(formatOutput)
	opts := cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout(), JQ: jqExpr}
	if table != nil {
		opts.Table = func() string { return table(cli.NewReporter()) }
	}
	return cli.Output(v, opts)
}

func writeMetrics() error {
	if metricsFile == "" || registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
