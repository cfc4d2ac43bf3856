package compress

import (
	"fmt"
	"log/slog"

	"github.com/meigma/arkive"
)

// config holds settings shared by packers and unpackers.
type config struct {
	concatenated bool
	logger       *slog.Logger
}

// Option configures a Packer or Unpacker.
type Option func(*config)

// WithConcatenated makes readers decode every back-to-back compressed
// member instead of stopping after the first. Formats without the switch
// reject it when the Packer or Unpacker is created.
func WithConcatenated(concatenated bool) Option {
	return func(c *config) {
		c.concatenated = concatenated
	}
}

// WithLogger sets the logger for pack and unpack operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func newConfig(f Format, opts []Option) (config, error) {
	var cfg config
	if f == nil {
		return cfg, fmt.Errorf("%w: no compression format", arkive.ErrNoFormat)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.concatenated && !f.SupportsConcatenated() {
		return cfg, fmt.Errorf("%s: %w", f.Name(), arkive.ErrConcatenatedUnsupported)
	}
	return cfg, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (c *config) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
