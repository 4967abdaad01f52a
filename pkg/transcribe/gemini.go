package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"

	"github.com/haivivi/voicegate/pkg/audio/wavfile"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

const geminiPrompt = "Transcribe the speech in this audio verbatim. Reply with the transcript only, or an empty reply if nobody speaks."

// Gemini transcribes by prompting a Gemini model with the clip inline.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Transcriber = (*Gemini)(nil)

// NewGemini creates a Gemini transcriber.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*Gemini, error) {
	cfg := config{model: DefaultGeminiModel}
	for _, o := range opts {
		o(&cfg)
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.httpClient != nil {
		cc.HTTPClient = cfg.httpClient
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("transcribe: genai client: %w", err)
	}
	return &Gemini{client: client, model: cfg.model}, nil
}

func (g *Gemini) Transcribe(ctx context.Context, clip voiceprint.Clip) (string, error) {
	data, err := wavfile.Bytes(clip)
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromText(geminiPrompt),
			genai.NewPartFromBytes(data, "audio/wav"),
		},
	}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		var e *apierror.APIError
		if errors.As(err, &e) {
			err = e.Unwrap()
		}
		return "", fmt.Errorf("transcribe: gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoSpeech
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
