package voiceprint

import "log/slog"

type options struct {
	logger *slog.Logger
}

// Option configures a Preprocessor or Extractor.
type Option func(*options)

// WithLogger sets the logger used to report degraded processing steps.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
