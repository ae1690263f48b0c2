package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// resampleQuality is the beep resampler quality used for file input.
const resampleQuality = 4

// StreamSource delivers a beep.Streamer in real time, chunk by chunk, as
// if it were captured from a microphone. The channel closes when the
// streamer is drained.
type StreamSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	streamer beep.Streamer
	closer   io.Closer
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

// NewStreamSource wraps s, which produces audio at rate.
func NewStreamSource(cfg Config, s beep.Streamer, rate beep.SampleRate, logger *slog.Logger) *StreamSource {
	if logger == nil {
		logger = slog.Default()
	}
	target := beep.SampleRate(cfg.SampleRate)
	if rate != target {
		s = beep.Resample(resampleQuality, rate, target, s)
	}
	return &StreamSource{
		cfg:      cfg,
		logger:   logger,
		streamer: s,
		streamCh: make(chan AudioChunk, 10),
	}
}

// OpenStreamSource decodes the WAV file named by cfg.File.
func OpenStreamSource(cfg Config, logger *slog.Logger) (*StreamSource, error) {
	f, err := os.Open(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", cfg.File, err)
	}
	src := NewStreamSource(cfg, s, format.SampleRate, logger)
	src.closer = s
	return src, nil
}

// Start begins paced delivery.
func (s *StreamSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan AudioChunk, 10)
	go s.pump(ctx, s.stopCh, s.streamCh)

	s.logger.Info("stream audio source started", "sample_rate", s.cfg.SampleRate, "file", s.cfg.File)
	return nil
}

func (s *StreamSource) pump(ctx context.Context, stop <-chan struct{}, out chan<- AudioChunk) {
	ticker := time.NewTicker(s.cfg.BufferDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-stop:
			return
		case <-ticker.C:
			chunk, ok := s.Next()
			s.mu.Lock()
			if s.running && len(chunk.Samples) > 0 {
				select {
				case out <- chunk:
					s.chunksRead.Add(1)
					s.samplesRead.Add(int64(len(chunk.Samples)))
				default:
					s.overruns.Add(1)
				}
			}
			s.mu.Unlock()
			if !ok {
				s.Stop()
				return
			}
		}
	}
}

// Next pulls one chunk from the streamer without pacing. ok is false once
// the streamer is drained.
func (s *StreamSource) Next() (AudioChunk, bool) {
	buf := make([][2]float64, s.cfg.BufferSize())
	n, ok := s.streamer.Stream(buf)
	samples := make([]int16, 0, n*s.cfg.Channels)
	for _, frame := range buf[:n] {
		if s.cfg.Channels == 1 {
			samples = append(samples, FloatToPCM((frame[0]+frame[1])/2))
			continue
		}
		samples = append(samples, FloatToPCM(frame[0]), FloatToPCM(frame[1]))
	}
	return AudioChunk{Samples: samples, SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}, ok && n > 0
}

// Stop halts delivery.
func (s *StreamSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	close(s.stopCh)
	close(s.streamCh)
	s.logger.Info("stream audio source stopped")
	return nil
}

// Stream returns the chunk channel.
func (s *StreamSource) Stream() <-chan AudioChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Config returns the capture configuration.
func (s *StreamSource) Config() Config { return s.cfg }

// Name returns "stream".
func (s *StreamSource) Name() string { return string(BackendStream) }

// Close stops delivery and closes the underlying file.
func (s *StreamSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Stop()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Stats returns source statistics.
func (s *StreamSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Overruns:    s.overruns.Load(),
		Running:     running,
		Backend:     s.Name(),
	}
}

var _ SourceWithStats = (*StreamSource)(nil)
