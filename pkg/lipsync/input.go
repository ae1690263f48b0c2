package lipsync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/audioio"
)

// Input feeds a decoder with audio.
type Input interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// FrameInput is an Input advanced by the frame loop rather than by its
// own goroutine.
type FrameInput interface {
	Input
	Advance(dt float64)
}

// MicInput pumps chunks from a live audio source into a decoder.
type MicInput struct {
	src    audioio.Source
	dec    AudioDecoder
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMicInput wires src to dec.
func NewMicInput(src audioio.Source, dec AudioDecoder, logger *slog.Logger) *MicInput {
	return &MicInput{src: src, dec: dec, logger: log.Component(logger, "lipsync.mic")}
}

// Name returns "mic:<backend>".
func (m *MicInput) Name() string { return "mic:" + m.src.Name() }

// Start begins capture.
func (m *MicInput) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	if err := m.src.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("start %s: %w", m.src.Name(), err)
	}
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.pump(ctx, m.src.Stream(), m.done)
	return nil
}

func (m *MicInput) pump(ctx context.Context, chunks <-chan audioio.AudioChunk, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				m.logger.Debug("audio source closed")
				return
			}
			m.dec.Feed(audioio.PCMToFloat(chunk.Mono()), chunk.SampleRate)
		}
	}
}

// Stop halts capture and waits for the pump to exit.
func (m *MicInput) Stop() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	err := m.src.Stop()
	<-done
	m.dec.Reset()
	return err
}

// ClipInput plays a prerecorded clip into a decoder, one frame's worth of
// samples per Advance.
type ClipInput struct {
	name     string
	dec      AudioDecoder
	streamer beep.StreamSeeker
	closer   io.Closer
	rate     beep.SampleRate

	playing bool
	carry   float64
	buf     [][2]float64
	mono    []float64
}

// NewClipInput plays s, recorded at rate, into dec.
func NewClipInput(name string, s beep.StreamSeeker, rate beep.SampleRate, dec AudioDecoder) *ClipInput {
	return &ClipInput{name: name, dec: dec, streamer: s, rate: rate}
}

// OpenClip decodes a WAV file.
func OpenClip(path string, dec AudioDecoder) (*ClipInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	c := NewClipInput("clip:"+path, s, format.SampleRate, dec)
	c.closer = s
	return c, nil
}

// Name identifies the clip.
func (c *ClipInput) Name() string { return c.name }

// Start rewinds and plays the clip.
func (c *ClipInput) Start(context.Context) error {
	if err := c.streamer.Seek(0); err != nil {
		return fmt.Errorf("rewind %s: %w", c.name, err)
	}
	c.dec.Reset()
	c.playing = true
	c.carry = 0
	return nil
}

// Stop pauses playback.
func (c *ClipInput) Stop() error {
	c.playing = false
	return nil
}

// Playing reports whether samples remain.
func (c *ClipInput) Playing() bool { return c.playing }

// Position returns the playback position in seconds.
func (c *ClipInput) Position() float64 {
	return c.rate.D(c.streamer.Position()).Seconds()
}

// Advance streams dt seconds of the clip into the decoder. Once the clip
// ends, silence is fed so the mouth closes.
func (c *ClipInput) Advance(dt float64) {
	want := dt*float64(c.rate) + c.carry
	n := int(want)
	c.carry = want - float64(n)
	if n <= 0 {
		return
	}
	if cap(c.buf) < n {
		c.buf = make([][2]float64, n)
		c.mono = make([]float64, n)
	}
	buf, mono := c.buf[:n], c.mono[:n]

	got := 0
	if c.playing {
		var ok bool
		got, ok = c.streamer.Stream(buf)
		if !ok || got < n {
			c.playing = false
		}
	}
	for i := range mono {
		if i < got {
			mono[i] = (buf[i][0] + buf[i][1]) / 2
		} else {
			mono[i] = 0
		}
	}
	c.dec.Feed(mono, int(c.rate))
}

// Close releases the clip file.
func (c *ClipInput) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
