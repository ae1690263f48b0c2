package gaze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/expression"
)

func scenarioPreset() *expression.Preset {
	p := expression.NewPreset("scenario", 3)
	p.Set(expression.GazeUp, []float64{40, 0, 60})
	p.Set(expression.GazeDown, []float64{0, 100, 0})
	p.Set(expression.Blink, []float64{10, 10, 10})
	return p
}

func newTestDriver(t *testing.T) (*Driver, *[]blendshape.Vector) {
	t.Helper()
	d := NewDriver(scenarioPreset(), 3, log.Discard())
	var got []blendshape.Vector
	d.OnChange(func(v blendshape.Vector) { got = append(got, v) })
	return d, &got
}

func TestDriverGazeUpThenBlink(t *testing.T) {
	d, got := newTestDriver(t)

	require.NoError(t, d.Set(expression.GazeUp, 50))
	d.Update(0)
	require.Len(t, *got, 1)
	assert.Equal(t, blendshape.Vector{20, 0, 30}, (*got)[0])

	require.NoError(t, d.Set(expression.Blink, 20))
	d.Update(0)
	require.Len(t, *got, 2)
	assert.Equal(t, blendshape.Vector{22, 2, 32}, (*got)[1])
}

func TestDriverUpAndDownExclude(t *testing.T) {
	d, got := newTestDriver(t)

	require.NoError(t, d.Set(expression.GazeDown, 50))
	d.Update(0)
	require.NoError(t, d.Set(expression.GazeUp, 50))
	require.NoError(t, d.Set(expression.GazeDown, 0))
	d.Update(0)

	assert.Equal(t, 50.0, d.Intensity(expression.GazeUp))
	assert.Equal(t, 0.0, d.Intensity(expression.GazeDown))
	assert.Equal(t, blendshape.Vector{20, 0, 30}, (*got)[len(*got)-1])
}

func TestDriverBlinkSurvivesGazeChange(t *testing.T) {
	d, _ := newTestDriver(t)

	require.NoError(t, d.Set(expression.Blink, 100))
	d.Update(0)
	require.NoError(t, d.Set(expression.GazeDown, 30))
	d.Update(0)

	assert.Equal(t, 100.0, d.Intensity(expression.Blink))
	assert.Equal(t, 30.0, d.Intensity(expression.GazeDown))
	assert.Equal(t, blendshape.Vector{10, 40, 10}, d.Output())
}

func TestDriverThreshold(t *testing.T) {
	d, got := newTestDriver(t)
	require.NoError(t, d.Set(expression.GazeUp, Threshold))
	d.Update(0)
	assert.Empty(t, *got)

	require.Error(t, d.Set(expression.Anger, 50))
}

func TestDriverDisableEmitsZero(t *testing.T) {
	d, got := newTestDriver(t)
	require.NoError(t, d.Set(expression.GazeUp, 80))
	d.Update(0)

	d.Disable()
	assert.False(t, d.Enabled())
	assert.Equal(t, blendshape.Vector{0, 0, 0}, (*got)[len(*got)-1])

	require.NoError(t, d.Set(expression.GazeUp, 80))
	d.Update(0)
	assert.Len(t, *got, 2)
}

func TestDriverWithoutPresetStaysZero(t *testing.T) {
	d := NewDriver(nil, 3, log.Discard())
	require.NoError(t, d.Set(expression.GazeUp, 90))
	d.Update(0)
	assert.Equal(t, blendshape.Vector{0, 0, 0}, d.Output())
}

func TestDriverReloadReappliesHeldGaze(t *testing.T) {
	d, got := newTestDriver(t)
	require.NoError(t, d.Set(expression.GazeUp, 50))
	d.Update(0)
	require.Len(t, *got, 1)

	p := scenarioPreset()
	p.Set(expression.GazeUp, []float64{100, 100, 0})
	d.Reload(p)
	require.Len(t, *got, 2)
	assert.Equal(t, blendshape.Vector{50, 50, 0}, (*got)[1])
}
