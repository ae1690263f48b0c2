package audioio

import (
	"context"
	"io"
)

// AudioChunk is a block of interleaved PCM16 samples.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns the chunk length in seconds.
func (c *AudioChunk) Duration() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
}

// Mono returns the samples downmixed to one channel.
func (c *AudioChunk) Mono() []int16 {
	if c.Channels == 2 {
		return StereoToMono(c.Samples)
	}
	return c.Samples
}

// Source captures audio from a microphone or other live input.
type Source interface {
	// Start begins capture. Chunks become available on Stream.
	Start(ctx context.Context) error

	// Stop halts capture. It is safe to call Stop multiple times.
	Stop() error

	// Stream returns the chunk channel. It is closed when the source stops.
	Stream() <-chan AudioChunk

	// Config returns the capture configuration.
	Config() Config

	// Name returns the backend name.
	Name() string

	// Close releases all resources.
	io.Closer
}

// SourceStats contains statistics about a source.
type SourceStats struct {
	ChunksRead  int64  `json:"chunks_read"`
	SamplesRead int64  `json:"samples_read"`
	Overruns    int64  `json:"overruns"`
	Running     bool   `json:"running"`
	Backend     string `json:"backend"`
}

// SourceWithStats extends Source with statistics.
type SourceWithStats interface {
	Source
	Stats() SourceStats
}
