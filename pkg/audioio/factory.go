package audioio

import (
	"fmt"
	"log/slog"
)

// NewSource creates the capture source selected by cfg.Backend.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendMock
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("creating audio source",
		"backend", cfg.Backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"buffer_ms", cfg.BufferDuration.Milliseconds(),
	)

	switch cfg.Backend {
	case BackendMock:
		return NewMockSource(cfg, logger, WithSpeech(220, 0.5, 4)), nil
	case BackendStream:
		return OpenStreamSource(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}
