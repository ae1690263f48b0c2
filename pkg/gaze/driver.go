package gaze

import (
	"log/slog"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/driver"
	"github.com/teslashibe/go-face/pkg/expression"
)

// Threshold is the minimum request change applied by the gaze driver.
const Threshold = 10.0

// Driver is the blend-shape side of gaze: blink, gaze-up and gaze-down.
// Up and down exclude each other; blink is added on top.
type Driver struct {
	logger *slog.Logger
	total  int

	group  *driver.Exclusive
	max    driver.MaxTable
	notify driver.Notifier

	enabled bool
	output  blendshape.Vector
}

// NewDriver creates an enabled gaze driver.
func NewDriver(store expression.Store, total int, logger *slog.Logger) *Driver {
	d := &Driver{
		logger:  log.Component(logger, "gaze"),
		total:   total,
		group:   driver.NewExclusive(Threshold, expression.GazeCategories()...).Independent(expression.Blink),
		enabled: true,
		output:  make(blendshape.Vector, total),
	}
	d.Reload(store)
	return d
}

// Reload swaps the preset store and re-applies the held intensities.
func (d *Driver) Reload(store expression.Store) {
	var err error
	d.max, err = driver.LoadTable(store, d.total, expression.GazeCategories()...)
	driver.LogMissing(d.logger, err)

	prev := d.output.Clone()
	d.recompute()
	if !d.output.Equal(prev) {
		d.notify.Emit(d.output)
	}
}

// OnChange subscribes to output vectors.
func (d *Driver) OnChange(l driver.Listener) { d.notify.OnChange(l) }

// Set requests intensity v for blink, gaze-up or gaze-down.
func (d *Driver) Set(c expression.Category, v float64) error {
	return d.group.Request(c, v)
}

// Intensity returns the applied intensity of c.
func (d *Driver) Intensity(c expression.Category) float64 { return d.group.Current(c) }

// Output returns a copy of the last emitted vector.
func (d *Driver) Output() blendshape.Vector { return d.output.Clone() }

// Enabled reports whether Update does any work.
func (d *Driver) Enabled() bool { return d.enabled }

// Update applies at most one request and emits when it did.
func (d *Driver) Update(float64) {
	if !d.enabled {
		return
	}
	if _, changed := d.group.Evaluate(); !changed {
		return
	}
	d.recompute()
	d.notify.Emit(d.output)
}

func (d *Driver) recompute() {
	clear(d.output)
	if c, v, ok := d.group.Active(); ok {
		driver.Scale(d.output, v, d.max.Get(c))
	}
	if blink := d.group.Current(expression.Blink); blink > 0 {
		driver.AddScaled(d.output, blink, d.max.Get(expression.Blink))
	}
}

// Enable resumes processing.
func (d *Driver) Enable() { d.enabled = true }

// Disable zeroes every request and emits one zero vector.
func (d *Driver) Disable() {
	if !d.enabled {
		return
	}
	d.enabled = false
	d.group.Reset()
	clear(d.output)
	d.notify.Emit(d.output)
}
