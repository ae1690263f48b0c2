package blendshape

import (
	"errors"
	"sync"
)

// Sink receives per-channel weights. It is the rendering side's view of
// the face; implementations must accept indices in [0, Total).
type Sink interface {
	SetChannelWeight(i int, w float64)
	ChannelWeight(i int) float64
}

// Flusher is implemented by sinks that batch writes and want a signal once
// per frame after all channels have been written.
type Flusher interface {
	Flush() error
}

// Memory is an in-process sink. It is safe for concurrent readers.
type Memory struct {
	mu      sync.RWMutex
	weights Vector
	writes  uint64
}

// NewMemory creates a sink with n zeroed channels.
func NewMemory(n int) *Memory {
	return &Memory{weights: make(Vector, n)}
}

// SetChannelWeight stores w for channel i. Out-of-range writes are ignored.
func (m *Memory) SetChannelWeight(i int, w float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.weights) {
		return
	}
	m.weights[i] = w
	m.writes++
}

// ChannelWeight returns the stored weight for channel i.
func (m *Memory) ChannelWeight(i int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i < 0 || i >= len(m.weights) {
		return 0
	}
	return m.weights[i]
}

// Weights returns a copy of every channel.
func (m *Memory) Weights() Vector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.weights.Clone()
}

// Writes returns how many channel writes were accepted.
func (m *Memory) Writes() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Tee fans writes out to several sinks. Reads come from the first one.
type Tee []Sink

// SetChannelWeight writes w to every sink.
func (t Tee) SetChannelWeight(i int, w float64) {
	for _, s := range t {
		s.SetChannelWeight(i, w)
	}
}

// ChannelWeight reads from the primary sink.
func (t Tee) ChannelWeight(i int) float64 {
	if len(t) == 0 {
		return 0
	}
	return t[0].ChannelWeight(i)
}

// Flush flushes every sink that supports it and joins their errors.
func (t Tee) Flush() error {
	var errs []error
	for _, s := range t {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
