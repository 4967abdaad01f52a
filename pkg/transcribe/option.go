package transcribe

import "net/http"

type config struct {
	model      string
	baseURL    string
	language   string
	httpClient *http.Client
}

// Option configures a transcriber.
type Option func(*config)

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithLanguage sets an ISO-639-1 language hint. Only OpenAI uses it.
func WithLanguage(lang string) Option {
	return func(c *config) { c.language = lang }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}
