// Package lipsync drives mouth shapes from a viseme decoder.
package lipsync

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/driver"
	"github.com/teslashibe/go-face/pkg/expression"
)

// Threshold is the minimum per-viseme change that triggers a recompute.
const Threshold = 0.05

// Mode selects which input feeds the decoder.
type Mode int

const (
	// Realtime listens to a live audio source.
	Realtime Mode = iota
	// Prerecorded plays a clip.
	Prerecorded
)

func (m Mode) String() string {
	switch m {
	case Realtime:
		return "realtime"
	case Prerecorded:
		return "prerecorded"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "realtime", "mic", "microphone":
		return Realtime, nil
	case "prerecorded", "clip":
		return Prerecorded, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Driver turns viseme frames into channel vectors.
type Driver struct {
	logger *slog.Logger
	total  int

	max    driver.MaxTable
	notify driver.Notifier

	decoder Decoder
	inputs  map[Mode]Input
	mode    Mode
	ctx     context.Context

	enabled    bool
	processing bool
	smoothing  int

	current Frame
	output  blendshape.Vector
}

// New creates an enabled driver reading dec. Processing starts with Start.
func New(store expression.Store, total int, dec Decoder, logger *slog.Logger) *Driver {
	d := &Driver{
		logger:    log.Component(logger, "lipsync"),
		total:     total,
		decoder:   dec,
		inputs:    make(map[Mode]Input),
		ctx:       context.Background(),
		enabled:   true,
		smoothing: 1,
		output:    make(blendshape.Vector, total),
	}
	d.Reload(store)
	return d
}

// Reload swaps the preset store and re-applies the last visemes.
func (d *Driver) Reload(store expression.Store) {
	var err error
	d.max, err = driver.LoadTable(store, d.total, expression.Visemes()...)
	driver.LogMissing(d.logger, err)

	prev := d.output.Clone()
	d.recompute()
	if !d.output.Equal(prev) {
		d.notify.Emit(d.output)
	}
}

// OnChange subscribes to output vectors.
func (d *Driver) OnChange(l driver.Listener) { d.notify.OnChange(l) }

// SetInput registers the input used in mode m.
func (d *Driver) SetInput(m Mode, in Input) { d.inputs[m] = in }

// Mode returns the active mode.
func (d *Driver) Mode() Mode { return d.mode }

// Processing reports whether audio is being consumed.
func (d *Driver) Processing() bool { return d.processing }

// Smoothing returns the decoder smoothing in [1,100].
func (d *Driver) Smoothing() int { return d.smoothing }

// Enabled reports whether Update does any work.
func (d *Driver) Enabled() bool { return d.enabled }

// Visemes returns the intensities used by the last recompute.
func (d *Driver) Visemes() Frame { return d.current }

// Output returns a copy of the last emitted vector.
func (d *Driver) Output() blendshape.Vector { return d.output.Clone() }

// Start binds the driver to ctx and begins processing.
func (d *Driver) Start(ctx context.Context) error {
	d.ctx = ctx
	return d.SetProcessing(true)
}

// SetProcessing starts or stops the active input. While stopped the
// output is frozen.
func (d *Driver) SetProcessing(on bool) error {
	if on == d.processing {
		return nil
	}
	d.processing = on
	if !d.enabled {
		return nil
	}
	if on {
		return d.startInput()
	}
	return d.stopInput()
}

// SetMode switches input. The math is unaffected.
func (d *Driver) SetMode(m Mode) error {
	if m != Realtime && m != Prerecorded {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	if m == d.mode {
		return nil
	}
	if d.processing && d.enabled {
		if err := d.stopInput(); err != nil {
			d.logger.Warn("stopping input failed", "mode", d.mode, "error", err)
		}
	}
	d.mode = m
	d.logger.Info("lip-sync mode changed", "mode", m)
	if d.processing && d.enabled {
		return d.startInput()
	}
	return nil
}

// SetSmoothing forwards n, clamped to [1,100], to the decoder.
func (d *Driver) SetSmoothing(n int) {
	d.smoothing = ClampSmoothing(n)
	if d.decoder != nil {
		d.decoder.SetSmoothing(d.smoothing)
	}
}

func (d *Driver) startInput() error {
	in, ok := d.inputs[d.mode]
	if !ok {
		d.logger.Debug("no input for mode, reading decoder only", "mode", d.mode)
		return nil
	}
	if err := in.Start(d.ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInputFailed, in.Name(), err)
	}
	return nil
}

func (d *Driver) stopInput() error {
	if in, ok := d.inputs[d.mode]; ok {
		return in.Stop()
	}
	return nil
}

// Update reads the decoder and emits when any viseme moved by more than
// Threshold since the last recompute.
func (d *Driver) Update(dt float64) {
	if !d.enabled || !d.processing || d.decoder == nil {
		return
	}
	if fi, ok := d.inputs[d.mode].(FrameInput); ok {
		fi.Advance(dt)
	}
	next := d.decoder.Visemes()
	if !changed(d.current, next) {
		return
	}
	d.current = next
	d.recompute()
	d.notify.Emit(d.output)
}

func changed(a, b Frame) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > Threshold {
			return true
		}
	}
	return false
}

func (d *Driver) recompute() {
	clear(d.output)
	for i, c := range expression.Visemes() {
		v := d.current[i]
		if v <= 0 {
			continue
		}
		maxv := d.max.Get(c)
		for ch := range d.output {
			d.output[ch] = blendshape.ClampWeight(d.output[ch] + v*maxv[ch])
		}
	}
}

// Enable resumes processing, restarting the input if needed.
func (d *Driver) Enable() error {
	if d.enabled {
		return nil
	}
	d.enabled = true
	if d.processing {
		return d.startInput()
	}
	return nil
}

// Disable stops the input, zeroes intensities and emits one zero vector.
func (d *Driver) Disable() error {
	if !d.enabled {
		return nil
	}
	var err error
	if d.processing {
		err = d.stopInput()
	}
	d.enabled = false
	d.current = Frame{}
	clear(d.output)
	d.notify.Emit(d.output)
	return err
}
