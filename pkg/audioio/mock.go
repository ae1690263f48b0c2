package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource generates synthetic audio: silence, a steady sine or
// speech-like bursts of tone.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64

	frame     int64
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0
	syllables float64 // bursts per second, 0 = steady tone
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures a steady sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
		m.syllables = 0
	}
}

// WithSpeech configures a tone whose loudness rises and falls syllables
// times per second, with a short pause every fourth syllable.
func WithSpeech(frequency, amplitude, syllables float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
		m.syllables = syllables
	}
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockSource{
		cfg:       cfg,
		logger:    logger,
		streamCh:  make(chan AudioChunk, 10),
		stopCh:    make(chan struct{}),
		amplitude: 0.5,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins generating audio.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.streamCh = make(chan AudioChunk, 10)

	go m.generateLoop(ctx, m.stopCh, m.streamCh)

	m.logger.Info("mock audio source started",
		"sample_rate", m.cfg.SampleRate,
		"frequency", m.frequency,
		"syllables", m.syllables,
	)
	return nil
}

func (m *MockSource) generateLoop(ctx context.Context, stop <-chan struct{}, out chan<- AudioChunk) {
	ticker := time.NewTicker(m.cfg.BufferDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-stop:
			return
		case <-ticker.C:
			chunk := m.Generate()
			m.mu.Lock()
			if m.running {
				select {
				case out <- chunk:
					m.chunksRead.Add(1)
					m.samplesRead.Add(int64(len(chunk.Samples)))
				default:
				}
			}
			m.mu.Unlock()
		}
	}
}

// Generate produces the next chunk without pacing. Exposed for tests.
func (m *MockSource) Generate() AudioChunk {
	size := m.cfg.BufferSize()
	samples := make([]int16, size*m.cfg.Channels)
	rate := float64(m.cfg.SampleRate)

	if m.frequency > 0 {
		for i := 0; i < size; i++ {
			t := float64(m.frame) / rate
			v := m.amplitude * m.envelope(t) * math.Sin(2*math.Pi*m.frequency*t)
			s := int16(v * 32767)
			for ch := 0; ch < m.cfg.Channels; ch++ {
				samples[i*m.cfg.Channels+ch] = s
			}
			m.frame++
		}
	} else {
		m.frame += int64(size)
	}

	return AudioChunk{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}
}

func (m *MockSource) envelope(t float64) float64 {
	if m.syllables <= 0 {
		return 1
	}
	n := int(t * m.syllables)
	if n%4 == 3 {
		return 0
	}
	return math.Abs(math.Sin(math.Pi * t * m.syllables))
}

// Stop halts audio generation.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopCh)
	close(m.streamCh)

	m.logger.Info("mock audio source stopped")
	return nil
}

// Stream returns the audio chunk channel.
func (m *MockSource) Stream() <-chan AudioChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCh
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config { return m.cfg }

// Name returns "mock".
func (m *MockSource) Name() string { return string(BackendMock) }

// Close releases resources.
func (m *MockSource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	return m.Stop()
}

// Stats returns source statistics.
func (m *MockSource) Stats() SourceStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return SourceStats{
		ChunksRead:  m.chunksRead.Load(),
		SamplesRead: m.samplesRead.Load(),
		Running:     running,
		Backend:     m.Name(),
	}
}

var _ SourceWithStats = (*MockSource)(nil)
