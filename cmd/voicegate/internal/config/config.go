// Package config is the voicegate CLI configuration.
//
// Configuration is a single YAML file under os.UserConfigDir()/voicegate/:
//
//	~/Library/Application Support/voicegate/config.yaml   (macOS)
//	~/.config/voicegate/config.yaml                       (Linux)
//	%AppData%/voicegate/config.yaml                       (Windows)
//
// VOICEGATE_CONFIG_DIR overrides the directory. A missing file yields the
// defaults; fields absent from the file keep their default values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/voicegate/pkg/profilestore"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

const (
	// appDir is the directory name under os.UserConfigDir().
	appDir = "voicegate"

	// configFile is the configuration file name.
	configFile = "config.yaml"

	// EnvDir overrides the configuration directory.
	EnvDir = "VOICEGATE_CONFIG_DIR"
)

// Store kinds.
const (
	StoreFile   = "file"
	StoreBadger = "badger"
	StoreBlob   = "blob"
	StoreS3     = "s3"
)

// Transcriber providers.
const (
	TranscriberNone   = "none"
	TranscriberOpenAI = "openai"
	TranscriberGemini = "gemini"
)

// Config is the CLI configuration.
type Config struct {
	Voiceprint  voiceprint.Config `yaml:"voiceprint" json:"voiceprint"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Transcriber TranscriberConfig `yaml:"transcriber" json:"transcriber"`
	Capture     CaptureConfig     `yaml:"capture" json:"capture"`
	Log         LogConfig         `yaml:"log" json:"log"`

	// path is the file the config was loaded from.
	path string
}

// StoreConfig selects and locates the profile store.
type StoreConfig struct {
	// Kind is file, badger, blob or s3.
	Kind string `yaml:"kind" json:"kind"`

	// Path is the JSON document (file), the database directory (badger)
	// or the blob root (blob). Relative paths resolve against the config
	// directory.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	S3 profilestore.S3Config `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// TranscriberConfig selects the speech recognizer.
type TranscriberConfig struct {
	// Provider is none, openai or gemini.
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model,omitempty" json:"model,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Language string `yaml:"language,omitempty" json:"language,omitempty"`

	// APIKey is usually left empty in favor of OPENAI_API_KEY or
	// GEMINI_API_KEY.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// CaptureConfig configures microphone capture.
type CaptureConfig struct {
	SampleRate int     `yaml:"sample_rate" json:"sample_rate"`
	Channels   int     `yaml:"channels" json:"channels"`
	Seconds    float64 `yaml:"seconds" json:"seconds"`
	Samples    int     `yaml:"samples" json:"samples"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Voiceprint:  voiceprint.DefaultConfig(),
		Store:       StoreConfig{Kind: StoreFile, Path: "voice_profiles.json"},
		Transcriber: TranscriberConfig{Provider: TranscriberNone},
		Capture:     CaptureConfig{SampleRate: 16000, Channels: 1, Seconds: 3, Samples: 3},
		Log:         LogConfig{Level: "info"},
	}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return filepath.Join(dir, configFile), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, configFile), nil
}

// Load loads the configuration from the default location.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from path. A missing file yields the
// defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	return nil
}

// Path returns the configuration file path.
func (c *Config) Path() string { return c.path }

// Dir returns the configuration directory.
func (c *Config) Dir() string { return filepath.Dir(c.path) }

// Validate checks the CLI sections and the pipeline configuration.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Kind {
	case StoreFile, StoreBadger, StoreBlob:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for %s store", c.Store.Kind))
		}
	case StoreS3:
		if c.Store.S3.Bucket == "" {
			errs = append(errs, errors.New("store.s3.bucket is required for s3 store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.kind %q: want file, badger, blob or s3", c.Store.Kind))
	}
	switch c.Transcriber.Provider {
	case "", TranscriberNone, TranscriberOpenAI, TranscriberGemini:
	default:
		errs = append(errs, fmt.Errorf("transcriber.provider %q: want none, openai or gemini", c.Transcriber.Provider))
	}
	if c.Capture.SampleRate <= 0 || c.Capture.Channels <= 0 || c.Capture.Seconds <= 0 {
		errs = append(errs, errors.New("capture.sample_rate, capture.channels and capture.seconds must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := c.Voiceprint.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StorePath resolves Store.Path against the configuration directory.
func (c *Config) StorePath() string {
	if c.Store.Path == "" || filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.Dir(), c.Store.Path)
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level %q: want debug, info, warn or error", s)
	}
	return l, nil
}
