package gaze

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-face/pkg/rig"
)

func TestTransitionDuration(t *testing.T) {
	assert.InDelta(t, 0.25, TransitionDuration(1, 0.25), 1e-12)
	assert.Equal(t, MinTransition, TransitionDuration(0.1, 0.2))
	assert.Equal(t, MaxTransition, TransitionDuration(10, 0.3))
}

func TestAimTransitionTerminates(t *testing.T) {
	start := mgl64.Vec3{0, 0, 1}
	end := mgl64.Vec3{1, 0, 1}
	aim := NewAimPoint(nil, start)

	dur := TransitionDuration(end.Sub(start).Len(), 0.25)
	aim.Begin(uuid.New(), dur)

	// 0.25 s is fifteen frames at 60 Hz.
	const dt = 1.0 / 60
	prev := aim.Position().X()
	for i := 0; i < 14; i++ {
		aim.Step(end, dt)
		x := aim.Position().X()
		assert.GreaterOrEqual(t, x, prev)
		prev = x
	}
	assert.Less(t, aim.Position().X(), 1.0)

	aim.Step(end, dt)
	assertVec(t, end, aim.Position(), 1e-9)

	// Afterwards it follows a moving target exactly.
	moved := mgl64.Vec3{1.2, 0, 1}
	aim.Step(moved, dt)
	assertVec(t, moved, aim.Position(), 1e-9)
}

func TestAimBeginResetsOnNewTarget(t *testing.T) {
	aim := NewAimPoint(nil, mgl64.Vec3{})
	aim.Begin(uuid.New(), 0.5)
	aim.Step(mgl64.Vec3{1, 0, 0}, 0.1)

	id := uuid.New()
	aim.Begin(id, 0.3)
	got, ok := aim.Target()
	assert.True(t, ok)
	assert.Equal(t, id, got)
	d, e := aim.Transition()
	assert.Equal(t, 0.3, d)
	assert.Equal(t, 0.0, e)

	aim.Set(mgl64.Vec3{0, 0, 2})
	_, ok = aim.Target()
	assert.False(t, ok)
}

func TestAimFollowsParent(t *testing.T) {
	head := rig.NewBone("head", mgl64.Vec3{0, 1.5, 0})
	root := rig.NewBone("root", mgl64.Vec3{})
	aim := NewAimPoint(head, mgl64.Vec3{0, 1.5, 1})

	head.SetRotation(mgl64.QuatRotate(math.Pi/2, worldUp))
	assertVec(t, mgl64.Vec3{1, 1.5, 0}, aim.Position(), 1e-9)

	aim.Reparent(root)
	assert.Equal(t, Bone(root), aim.Parent())
	assertVec(t, mgl64.Vec3{1, 1.5, 0}, aim.Position(), 1e-9)

	head.SetRotation(mgl64.QuatIdent())
	assertVec(t, mgl64.Vec3{1, 1.5, 0}, aim.Position(), 1e-9)
}
