// Package facetest builds small faces for tests of packages layered on
// top of face.
package facetest

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/face"
	"github.com/teslashibe/go-face/pkg/frame"
	"github.com/teslashibe/go-face/pkg/gaze"
	"github.com/teslashibe/go-face/pkg/lipsync"
	"github.com/teslashibe/go-face/pkg/rig"
)

// Preset maps Happiness to channel 0, Anger to 1, viseme AA to 0,
// GazeDown to 2 and Blink to 3.
func Preset(total int) *expression.Preset {
	p := expression.NewPreset("test", total)
	one := func(ch int, v float64) []float64 {
		out := make([]float64, total)
		out[ch] = v
		return out
	}
	p.Set(expression.Happiness, one(0, 100))
	p.Set(expression.Anger, one(1, 100))
	p.Set(expression.AA, one(0, 100))
	p.Set(expression.GazeDown, one(2, 100))
	p.Set(expression.Blink, one(3, 100))
	return p
}

// Face is a face on its own loop with a memory sink.
type Face struct {
	Loop    *frame.Loop
	Sink    *blendshape.Memory
	Decoder *lipsync.ManualDecoder
	Head    *rig.Head
	Manager *face.Manager
}

// New builds a face with static gaze and no blinking. The loop is not
// running; call Run or step it by hand.
func New(t testing.TB) *Face {
	t.Helper()
	h := rig.NewHead()
	f := &Face{
		Loop:    frame.NewLoop(frame.Config{Rate: time.Millisecond}, log.Discard()),
		Sink:    blendshape.NewMemory(h.Space.Total()),
		Decoder: &lipsync.ManualDecoder{},
		Head:    h,
	}
	cfg := gaze.DefaultConfig()
	cfg.Mode = gaze.ModeStatic
	cfg.Eyes.Blinking = false
	cfg.Eyes.MicroVariations = false

	m, err := face.New(f.Loop, face.Options{
		Space:   h.Space,
		Store:   Preset(h.Space.Total()),
		Sink:    f.Sink,
		Anatomy: gaze.Anatomy{Root: h.Root, Head: h.Head, LeftEye: h.LeftEye, RightEye: h.RightEye},
		Gaze:    cfg,
		Decoder: f.Decoder,
		Rand:    rand.New(rand.NewPCG(5, 6)),
		Logger:  log.Discard(),
	})
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	f.Manager = m
	return f
}

// Run ticks the loop in the background until the test ends.
func (f *Face) Run(t testing.TB) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// Weight reads channel i on the loop.
func (f *Face) Weight(t testing.TB, i int) float64 {
	t.Helper()
	var w float64
	require.NoError(t, f.Loop.Do(context.Background(), func() { w = f.Sink.ChannelWeight(i) }))
	return w
}
