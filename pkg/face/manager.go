// Package face assembles the channel drivers, the gaze system and the
// blend arbiter of one character on a frame loop.
package face

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/emotion"
	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/frame"
	"github.com/teslashibe/go-face/pkg/gaze"
	"github.com/teslashibe/go-face/pkg/interest"
	"github.com/teslashibe/go-face/pkg/lipsync"
)

// Observer is told about engine events. Calls happen on the frame loop.
type Observer interface {
	Emitted(ch Channel)
	Blended()
	Rerolled()
	Candidates(n int)
}

// Options wires a Manager. Space, Sink and Store are required; the rest is
// optional.
type Options struct {
	Space *blendshape.Space
	Store expression.Store
	Sink  blendshape.Sink

	Anatomy gaze.Anatomy
	IK      gaze.IKSink
	Gaze    gaze.Config

	// Field is the interest field; a fresh one is created when nil.
	Field *interest.Field
	// Scanner and Objects feed the field from the scene every frame.
	Scanner *interest.Scanner
	Objects func() []interest.Candidate

	// Decoder feeds lip-sync; the envelope decoder is used when nil.
	Decoder lipsync.Decoder
	Inputs  map[lipsync.Mode]lipsync.Input
	LipMode lipsync.Mode

	Rand   *rand.Rand
	Logger *slog.Logger
}

// Manager is one animated face. All methods must be called on the loop;
// other goroutines go through Loop.Post or Loop.Do.
type Manager struct {
	logger *slog.Logger
	loop   *frame.Loop
	space  *blendshape.Space
	sink   blendshape.Sink

	emotion *emotion.Driver
	gaze    *gaze.System
	lip     *lipsync.Driver
	arbiter *Arbiter
	field   *interest.Field

	observer Observer
	enabled  bool
	flushErr log.WarnOnce
}

// New builds the character and registers it on loop. Lip-sync input does
// not start until Start.
func New(loop *frame.Loop, o Options) (*Manager, error) {
	if o.Space == nil {
		return nil, fmt.Errorf("face: %w", blendshape.ErrInvalidSpace)
	}
	if o.Sink == nil {
		return nil, errors.New("face: sink required")
	}
	logger := log.Component(o.Logger, "face")
	total := o.Space.Total()
	if o.Field == nil {
		o.Field = interest.NewField(o.Logger)
	}
	if o.Decoder == nil {
		o.Decoder = lipsync.NewEnvelopeDecoder()
	}

	m := &Manager{
		logger:  logger,
		loop:    loop,
		space:   o.Space,
		sink:    o.Sink,
		field:   o.Field,
		enabled: true,
	}
	m.emotion = emotion.New(o.Store, total, o.Logger)
	m.lip = lipsync.New(o.Store, total, o.Decoder, o.Logger)
	for mode, in := range o.Inputs {
		m.lip.SetInput(mode, in)
	}
	if err := m.lip.SetMode(o.LipMode); err != nil {
		return nil, err
	}
	m.gaze = gaze.New(gaze.Options{
		Store:     o.Store,
		Total:     total,
		Anatomy:   o.Anatomy,
		Field:     o.Field,
		Scanner:   o.Scanner,
		IK:        o.IK,
		Scheduler: loop.Scheduler(),
		Rand:      o.Rand,
		Logger:    o.Logger,
		Config:    o.Gaze,
	})
	m.arbiter = NewArbiter(total, o.Sink, loop.Scheduler(), logger)

	m.emotion.OnChange(m.listener(ChannelEmotion))
	m.gaze.Driver().OnChange(m.listener(ChannelGaze))
	m.lip.OnChange(m.listener(ChannelLipSync))
	m.arbiter.OnBlend(func() {
		if m.observer != nil {
			m.observer.Blended()
		}
	})
	m.gaze.Selector().OnReroll(func(int) {
		if m.observer != nil {
			m.observer.Rerolled()
		}
	})
	m.field.OnChange(func(n int) {
		if m.observer != nil {
			m.observer.Candidates(n)
		}
	})

	if o.Scanner != nil && o.Objects != nil {
		loop.Add(frame.Update, "interest.scan", func(float64) { o.Scanner.Scan(o.Objects()) })
	}
	loop.Add(frame.Update, "interest.prune", m.field.Update)
	loop.Add(frame.Update, "emotion", m.emotion.Update)
	loop.Add(frame.Update, "lipsync", m.lip.Update)
	loop.Add(frame.Late, "gaze", m.gaze.Late)
	loop.Add(frame.Output, "arbiter", m.arbiter.Step)
	loop.AtFrameEnd("sink.flush", m.flush)

	logger.Info("face ready", "channels", total, "gaze_mode", m.gaze.Selector().Mode(), "lipsync_mode", m.lip.Mode())
	return m, nil
}

func (m *Manager) listener(ch Channel) func(blendshape.Vector) {
	submit := m.arbiter.Listener(ch)
	return func(v blendshape.Vector) {
		submit(v)
		if m.observer != nil {
			m.observer.Emitted(ch)
		}
	}
}

func (m *Manager) flush(float64) {
	f, ok := m.sink.(blendshape.Flusher)
	if !ok {
		return
	}
	if err := f.Flush(); err != nil {
		m.flushErr.Warn(m.logger, err.Error(), "sink flush failed", "error", err)
	}
}

// Start begins lip-sync processing under ctx.
func (m *Manager) Start(ctx context.Context) error {
	return m.lip.Start(ctx)
}

// SetObserver installs an event observer.
func (m *Manager) SetObserver(o Observer) { m.observer = o }

// Space returns the channel space.
func (m *Manager) Space() *blendshape.Space { return m.space }

// Emotion returns the emotion driver.
func (m *Manager) Emotion() *emotion.Driver { return m.emotion }

// Gaze returns the gaze system.
func (m *Manager) Gaze() *gaze.System { return m.gaze }

// LipSync returns the lip-sync driver.
func (m *Manager) LipSync() *lipsync.Driver { return m.lip }

// Arbiter returns the blend arbiter.
func (m *Manager) Arbiter() *Arbiter { return m.arbiter }

// Field returns the interest field.
func (m *Manager) Field() *interest.Field { return m.field }

// Enabled reports whether the face is animating.
func (m *Manager) Enabled() bool { return m.enabled }

// SetEmotion requests emotion c at intensity v. Showing it clears the
// other emotions.
func (m *Manager) SetEmotion(c expression.Category, v float64) error {
	if !expression.IsEmotion(c) {
		return fmt.Errorf("%w: %s is not an emotion", expression.ErrUnknownCategory, c)
	}
	return m.emotion.Set(c, v)
}

// SetGazeMode switches the gaze behavior.
func (m *Manager) SetGazeMode(mode gaze.Mode) { m.gaze.SetMode(mode) }

// SetGazeTarget assigns the scripted gaze target.
func (m *Manager) SetGazeTarget(p mgl64.Vec3) { m.gaze.Selector().SetTarget(p) }

// SetAgentMode toggles agent look-at.
func (m *Manager) SetAgentMode(on bool) { m.gaze.Selector().SetAgentMode(on) }

// SetLipMode switches the lip-sync input.
func (m *Manager) SetLipMode(mode lipsync.Mode) error { return m.lip.SetMode(mode) }

// Reload swaps the expression presets of every driver.
func (m *Manager) Reload(store expression.Store) {
	m.emotion.Reload(store)
	m.gaze.Driver().Reload(store)
	m.lip.Reload(store)
	m.logger.Info("expression presets reloaded")
}

// Disable stops every driver and resets the sink to zero.
func (m *Manager) Disable() error {
	if !m.enabled {
		return nil
	}
	m.enabled = false
	m.emotion.Disable()
	m.gaze.Disable()
	err := m.lip.Disable()
	m.arbiter.Disable()
	return err
}

// Enable resumes animation.
func (m *Manager) Enable() error {
	if m.enabled {
		return nil
	}
	m.enabled = true
	m.arbiter.Enable()
	m.emotion.Enable()
	m.gaze.Enable()
	return m.lip.Enable()
}
