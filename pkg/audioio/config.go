// Package audioio captures live audio for the lip-sync input.
//
// Backends:
//   - mock: synthetic speech-like tone bursts, for demos and CI
//   - stream: any beep.Streamer (a WAV file, a generator) paced in real time
package audioio

import (
	"fmt"
	"time"
)

// Backend names an audio capture backend.
type Backend string

const (
	// BackendMock generates synthetic audio.
	BackendMock Backend = "mock"
	// BackendStream plays a beep streamer as if it were a microphone.
	BackendStream Backend = "stream"
)

// Config holds capture configuration.
type Config struct {
	// Backend selects the capture backend. Default: mock.
	Backend Backend `mapstructure:"backend" yaml:"backend" json:"backend"`

	// SampleRate is the sample rate of delivered chunks in Hz.
	// Default: 16000
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of channels of delivered chunks.
	// Default: 1 (mono)
	Channels int `mapstructure:"channels" yaml:"channels" json:"channels"`

	// BufferDuration is the length of one chunk.
	// Default: 20ms
	BufferDuration time.Duration `mapstructure:"buffer_duration" yaml:"buffer_duration" json:"buffer_duration"`

	// File is the audio file read by the stream backend.
	File string `mapstructure:"file" yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendMock,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	if c.Backend == BackendStream && c.File == "" {
		return fmt.Errorf("stream backend needs a file")
	}
	return nil
}

// BufferSize returns the number of frames per chunk.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}
