package lipsync

import (
	"math"
	"sync"

	"github.com/teslashibe/go-face/pkg/expression"
)

// Frame holds one intensity in [0,1] per viseme, in expression.Visemes order.
type Frame [expression.NumVisemes]float64

// At returns the intensity of viseme c.
func (f Frame) At(c expression.Category) float64 {
	if !c.IsViseme() {
		return 0
	}
	return f[c-expression.VisemeSil]
}

// Set stores v, clamped to [0,1], for viseme c.
func (f *Frame) Set(c expression.Category, v float64) {
	if c.IsViseme() {
		f[c-expression.VisemeSil] = math.Max(0, math.Min(1, v))
	}
}

// Decoder produces the current viseme frame. Implementations may be fed
// from another goroutine; Visemes must be safe to call concurrently.
type Decoder interface {
	Visemes() Frame
	SetSmoothing(n int)
}

// AudioDecoder is a Decoder fed with raw audio by an Input.
type AudioDecoder interface {
	Decoder
	Feed(samples []float64, sampleRate int)
	Reset()
}

// ManualDecoder returns whatever frame was last pushed to it. It backs
// external phoneme engines and tests.
type ManualDecoder struct {
	mu        sync.Mutex
	frame     Frame
	smoothing int
}

// Push replaces the current frame.
func (m *ManualDecoder) Push(f Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range f {
		f[i] = math.Max(0, math.Min(1, f[i]))
	}
	m.frame = f
}

// Visemes returns the last pushed frame.
func (m *ManualDecoder) Visemes() Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

// SetSmoothing records n; the frame is passed through unchanged.
func (m *ManualDecoder) SetSmoothing(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.smoothing = n
}

// Smoothing returns the last value handed to SetSmoothing.
func (m *ManualDecoder) Smoothing() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.smoothing
}
