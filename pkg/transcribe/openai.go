package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/haivivi/voicegate/pkg/audio/wavfile"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// DefaultOpenAIModel is the Whisper model used when none is configured.
const DefaultOpenAIModel = string(openai.AudioModelWhisper1)

// OpenAI transcribes with the OpenAI audio transcription API, or any
// compatible endpoint set with WithBaseURL.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
}

var _ Transcriber = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI transcriber.
func NewOpenAI(apiKey string, opts ...Option) *OpenAI {
	cfg := config{
		model:      DefaultOpenAIModel,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(&cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(cfg.httpClient),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(clientOpts...)
	return &OpenAI{client: &client, model: cfg.model, language: cfg.language}
}

func (o *OpenAI) Transcribe(ctx context.Context, clip voiceprint.Clip) (string, error) {
	data, err := wavfile.Bytes(clip)
	if err != nil {
		return "", err
	}
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(data), "clip.wav", "audio/wav"),
		Model: openai.AudioModel(o.model),
	}
	if o.language != "" {
		params.Language = openai.String(o.language)
	}
	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcribe: openai: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
