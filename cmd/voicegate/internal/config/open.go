package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/haivivi/voicegate/pkg/profilestore"
	"github.com/haivivi/voicegate/pkg/transcribe"
)

// Environment variables holding transcriber API keys.
const (
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvGeminiKey = "GEMINI_API_KEY"
)

// OpenStore opens the configured profile store.
func (c *Config) OpenStore(logger *slog.Logger) (profilestore.Store, error) {
	switch c.Store.Kind {
	case StoreFile:
		return profilestore.NewFile(c.StorePath(), profilestore.WithFileLogger(logger))
	case StoreBadger:
		return profilestore.NewBadger(profilestore.BadgerOptions{Dir: c.StorePath(), Logger: logger})
	case StoreBlob:
		blobs, err := profilestore.NewLocalBlobs(c.StorePath())
		if err != nil {
			return nil, err
		}
		return profilestore.NewBlob(blobs), nil
	case StoreS3:
		client, err := profilestore.NewS3Client(c.Store.S3)
		if err != nil {
			return nil, err
		}
		return profilestore.NewBlob(profilestore.NewS3Blobs(client, c.Store.S3.Bucket, c.Store.S3.Prefix)), nil
	}
	return nil, fmt.Errorf("unknown store kind %q", c.Store.Kind)
}

// NewTranscriber creates the configured transcriber. The API key comes
// from the config file or, when empty there, the provider's environment
// variable.
func (c *Config) NewTranscriber(ctx context.Context) (transcribe.Transcriber, error) {
	t := c.Transcriber
	var opts []transcribe.Option
	if t.Model != "" {
		opts = append(opts, transcribe.WithModel(t.Model))
	}
	if t.BaseURL != "" {
		opts = append(opts, transcribe.WithBaseURL(t.BaseURL))
	}
	if t.Language != "" {
		opts = append(opts, transcribe.WithLanguage(t.Language))
	}

	switch t.Provider {
	case "", TranscriberNone:
		return transcribe.Nop{}, nil
	case TranscriberOpenAI:
		key := apiKey(t.APIKey, EnvOpenAIKey)
		if key == "" {
			return nil, errors.New("openai transcriber: set transcriber.api_key or " + EnvOpenAIKey)
		}
		return transcribe.NewOpenAI(key, opts...), nil
	case TranscriberGemini:
		key := apiKey(t.APIKey, EnvGeminiKey)
		if key == "" {
			return nil, errors.New("gemini transcriber: set transcriber.api_key or " + EnvGeminiKey)
		}
		return transcribe.NewGemini(ctx, key, opts...)
	}
	return nil, fmt.Errorf("unknown transcriber provider %q", t.Provider)
}

func apiKey(configured, env string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv(env)
}
