package rig

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestSimSpace(t *testing.T) {
	s := SimSpace()
	assert.Equal(t, len(HeadChannels)+len(MouthChannels), s.Total())
	i, ok := s.Index("jawOpen")
	assert.True(t, ok)
	assert.Equal(t, "head.jawOpen", s.Name(i))
}

func TestHeadRotationMovesEyes(t *testing.T) {
	h := NewHead()
	assert.InDelta(t, EyeHalfWidth, h.LeftEye.Position().X(), 1e-9)
	assert.InDelta(t, -EyeHalfWidth, h.RightEye.Position().X(), 1e-9)

	h.SetHeadRotation(mgl64.QuatRotate(math.Pi, mgl64.Vec3{0, 1, 0}))
	assert.InDelta(t, -EyeHalfWidth, h.LeftEye.Position().X(), 1e-9)
	assert.InDelta(t, NeckHeight+EyeHeight, h.LeftEye.Position().Y(), 1e-9)
	assert.InDelta(t, -EyeForward, h.LeftEye.Position().Z(), 1e-9)
}

func TestIdleStaysNearForward(t *testing.T) {
	h := NewHead()
	for i := 0; i < 300; i++ {
		h.Idle(1.0 / 30)
	}
	fwd := h.Head.Rotation().Rotate(mgl64.Vec3{0, 0, 1})
	assert.Greater(t, fwd.Z(), 0.9)
}
