// Package emotion drives the six basic emotions as a mutually exclusive
// channel.
package emotion

import (
	"log/slog"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/driver"
	"github.com/teslashibe/go-face/pkg/expression"
)

// Threshold is the minimum request change that switches emotion.
const Threshold = 1.0

// Driver turns emotion requests into channel vectors.
type Driver struct {
	logger *slog.Logger
	total  int

	group  *driver.Exclusive
	max    driver.MaxTable
	notify driver.Notifier

	enabled bool
	output  blendshape.Vector
}

// New creates an enabled driver for a character with total channels.
// A nil or incomplete store leaves the affected emotions at zero.
func New(store expression.Store, total int, logger *slog.Logger) *Driver {
	d := &Driver{
		logger:  log.Component(logger, "emotion"),
		total:   total,
		group:   driver.NewExclusive(Threshold, expression.Emotions()...),
		enabled: true,
		output:  make(blendshape.Vector, total),
	}
	d.Reload(store)
	return d
}

// Reload swaps the preset store. Current intensities are kept and
// re-applied with the new values, emitting when the output moved.
func (d *Driver) Reload(store expression.Store) {
	var err error
	d.max, err = driver.LoadTable(store, d.total, expression.Emotions()...)
	driver.LogMissing(d.logger, err)

	prev := d.output.Clone()
	d.recompute()
	if !d.output.Equal(prev) {
		d.notify.Emit(d.output)
	}
}

// OnChange subscribes to output vectors.
func (d *Driver) OnChange(l driver.Listener) { d.notify.OnChange(l) }

// Set requests intensity v in [0,100] for emotion c. The request takes
// effect on the next Update if it moved by more than Threshold.
func (d *Driver) Set(c expression.Category, v float64) error {
	return d.group.Request(c, v)
}

// Request returns the pending request of c.
func (d *Driver) Request(c expression.Category) float64 { return d.group.Requested(c) }

// Intensity returns the applied intensity of c.
func (d *Driver) Intensity(c expression.Category) float64 { return d.group.Current(c) }

// Active returns the emotion currently shown, if any.
func (d *Driver) Active() (expression.Category, float64, bool) { return d.group.Active() }

// Output returns a copy of the last emitted vector.
func (d *Driver) Output() blendshape.Vector { return d.output.Clone() }

// Enabled reports whether Update does any work.
func (d *Driver) Enabled() bool { return d.enabled }

// Update applies at most one request and emits when it did.
func (d *Driver) Update(float64) {
	if !d.enabled {
		return
	}
	hit, changed := d.group.Evaluate()
	if !changed {
		return
	}
	d.recompute()
	d.logger.Debug("emotion changed", "emotion", hit, "intensity", d.group.Current(hit))
	d.notify.Emit(d.output)
}

func (d *Driver) recompute() {
	c, v, ok := d.group.Active()
	if !ok {
		clear(d.output)
		return
	}
	driver.Scale(d.output, v, d.max.Get(c))
}

// Enable resumes processing.
func (d *Driver) Enable() { d.enabled = true }

// Disable zeroes every emotion and emits one zero vector.
func (d *Driver) Disable() {
	if !d.enabled {
		return
	}
	d.enabled = false
	d.group.Reset()
	clear(d.output)
	d.notify.Emit(d.output)
}
