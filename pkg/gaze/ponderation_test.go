package gaze

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/pkg/interest"
)

type fakeEmitter struct {
	playing bool
	volume  float64
}

func (e *fakeEmitter) Playing() bool   { return e.playing }
func (e *fakeEmitter) Volume() float64 { return e.volume }

func entriesOf(objs ...*interest.Object) []interest.Entry {
	out := make([]interest.Entry, len(objs))
	for i, o := range objs {
		out[i] = interest.Entry{ID: uuid.New(), Candidate: o}
	}
	return out
}

func TestDistanceWeight(t *testing.T) {
	assert.Equal(t, 50.0, DistanceWeight(0, 2))
	assert.Equal(t, 33.0, DistanceWeight(0, 3))
	assert.Equal(t, 100.0, DistanceWeight(0, 0.5))
	assert.Equal(t, 100.0, DistanceWeight(0, 0))
	assert.Equal(t, 0.0, DistanceWeight(0, 400))
	// Ties round to even.
	assert.Equal(t, 12.0, DistanceWeight(0, 8))
}

func TestSoundAndMovementWeights(t *testing.T) {
	assert.Equal(t, 500.0, SoundWeight(50, 1, 1))
	assert.Equal(t, 150.0, SoundWeight(50, 10, 0.1))
	assert.Equal(t, 100.0, MovementWeight(20, 0.05))
	assert.Equal(t, 60.0, MovementWeight(20, 0.001))
	assert.Equal(t, 200.0, MovementWeight(20, 2))
}

func TestPonderationDistanceAndSound(t *testing.T) {
	near := interest.NewObject("near", mgl64.Vec3{0, 0, 2})
	far := interest.NewObject("far", mgl64.Vec3{0, 0, 4})
	entries := entriesOf(near, far)

	p := NewPonderation()
	assert.Equal(t, []float64{50, 25}, p.Update(mgl64.Vec3{}, entries, 0))

	em := &fakeEmitter{playing: true, volume: 1}
	near.AttachEmitter(em)
	// The emitter lookup is rebuilt on count changes only.
	assert.Equal(t, []float64{50, 25}, p.Update(mgl64.Vec3{}, entries, 0))

	p.Reset()
	assert.Equal(t, []float64{250, 25}, p.Update(mgl64.Vec3{}, entries, 0))

	em.playing = false
	assert.Equal(t, []float64{50, 25}, p.Update(mgl64.Vec3{}, entries, 0))
}

func TestPonderationMovementUsesSnapshot(t *testing.T) {
	obj := interest.NewObject("walker", mgl64.Vec3{0, 0, 2})
	entries := entriesOf(obj)

	p := NewPonderation()
	require.Equal(t, []float64{50}, p.Update(mgl64.Vec3{}, entries, SnapshotInterval))

	obj.MoveTo(mgl64.Vec3{0.05, 0, 2})
	assert.Equal(t, []float64{250}, p.Update(mgl64.Vec3{}, entries, 0.1))

	// A new candidate clears the history.
	other := interest.NewObject("other", mgl64.Vec3{0, 0, 4})
	entries = append(entries, entriesOf(other)...)
	obj.MoveTo(mgl64.Vec3{0.1, 0, 2})
	w := p.Update(mgl64.Vec3{}, entries, 0.1)
	assert.Equal(t, []float64{50, 25}, w)
	assert.Equal(t, []float64{50, 25}, p.Weights())
}
