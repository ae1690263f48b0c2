package interest

import (
	"math"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// StreamEmitter exposes a beep stream as a candidate's sound source. The
// stream is pulled either by a speaker mixing Streamer() or, headless, by
// Advance.
type StreamEmitter struct {
	mu      sync.Mutex
	rate    beep.SampleRate
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	linear  float64
	drained bool
	carry   float64
	scratch [][2]float64
}

// NewStreamEmitter wraps s, produced at rate, playing at linear volume v.
func NewStreamEmitter(s beep.Streamer, rate beep.SampleRate, v float64) *StreamEmitter {
	e := &StreamEmitter{rate: rate}
	e.ctrl = &beep.Ctrl{Streamer: &drainWatch{s: s, e: e}}
	e.volume = &effects.Volume{Streamer: e.ctrl, Base: 2}
	e.SetVolume(v)
	return e
}

// Streamer returns the volume-adjusted stream for a mixer.
func (e *StreamEmitter) Streamer() beep.Streamer { return e.volume }

// Playing reports whether the stream is unpaused and not yet drained.
func (e *StreamEmitter) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.ctrl.Paused && !e.drained && !e.volume.Silent
}

// Volume returns the linear volume in [0,1].
func (e *StreamEmitter) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.linear
}

// SetVolume sets the linear volume, clamped to [0,1].
func (e *StreamEmitter) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v = math.Max(0, math.Min(1, v))
	e.linear = v
	e.volume.Silent = v == 0
	if v > 0 {
		e.volume.Volume = math.Log2(v)
	}
}

// Pause stops playback.
func (e *StreamEmitter) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctrl.Paused = true
}

// Resume continues playback.
func (e *StreamEmitter) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctrl.Paused = false
}

// Play replaces the stream with s and restarts playback. The emitter
// keeps its identity, so candidates holding it see the new sound. A
// speaker mixing Streamer() must be locked by the caller.
func (e *StreamEmitter) Play(s beep.Streamer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctrl.Streamer = &drainWatch{s: s, e: e}
	e.ctrl.Paused = false
	e.drained = false
	e.carry = 0
}

// Advance pulls dt seconds of audio and discards it, for scenes without
// an audio device.
func (e *StreamEmitter) Advance(dt float64) {
	want := dt*float64(e.rate) + e.carry
	n := int(want)
	e.carry = want - float64(n)
	if n <= 0 {
		return
	}
	if cap(e.scratch) < n {
		e.scratch = make([][2]float64, n)
	}
	e.volume.Stream(e.scratch[:n])
}

type drainWatch struct {
	s beep.Streamer
	e *StreamEmitter
}

func (d *drainWatch) Stream(samples [][2]float64) (int, bool) {
	n, ok := d.s.Stream(samples)
	if !ok {
		d.e.mu.Lock()
		d.e.drained = true
		d.e.mu.Unlock()
	}
	return n, ok
}

func (d *drainWatch) Err() error { return d.s.Err() }
