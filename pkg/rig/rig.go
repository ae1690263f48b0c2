// Package rig provides a simulated character head: a channel space, a
// minimal bone hierarchy and a scripted head motion. It stands in for a
// real renderer in the CLI demo and in tests.
package rig

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-face/pkg/blendshape"
)

// HeadChannels are the deformation channels of the simulated face mesh.
var HeadChannels = []string{
	"browDown_L", "browDown_R", "browInnerUp", "browOuterUp_L", "browOuterUp_R",
	"eyeBlink_L", "eyeBlink_R", "eyeLookUp_L", "eyeLookUp_R", "eyeLookDown_L", "eyeLookDown_R",
	"eyeWide_L", "eyeWide_R", "eyeSquint_L", "eyeSquint_R",
	"cheekSquint_L", "cheekSquint_R", "noseSneer_L", "noseSneer_R",
	"mouthSmile_L", "mouthSmile_R", "mouthFrown_L", "mouthFrown_R",
	"mouthPucker", "mouthFunnel", "mouthClose", "mouthPress_L", "mouthPress_R",
	"mouthStretch_L", "mouthStretch_R", "mouthRollLower", "mouthUpperUp_L", "mouthUpperUp_R",
	"jawOpen",
}

// MouthChannels are the channels of the separate teeth and tongue mesh.
var MouthChannels = []string{"tongueOut", "tongueUp"}

// SimSpace returns the channel space of the simulated head.
func SimSpace() *blendshape.Space {
	return blendshape.MustSpace(
		blendshape.Part{Name: "head", Channels: HeadChannels},
		blendshape.Part{Name: "mouth", Channels: MouthChannels},
	)
}

// Bone is a world-space transform. Positions are in metres, the world is
// right-handed with +Y up and the character facing +Z.
type Bone struct {
	mu   sync.RWMutex
	name string
	pos  mgl64.Vec3
	rot  mgl64.Quat
}

// NewBone creates a bone at pos with identity rotation.
func NewBone(name string, pos mgl64.Vec3) *Bone {
	return &Bone{name: name, pos: pos, rot: mgl64.QuatIdent()}
}

// Name returns the bone name.
func (b *Bone) Name() string { return b.name }

// Position returns the world position.
func (b *Bone) Position() mgl64.Vec3 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pos
}

// Rotation returns the world rotation.
func (b *Bone) Rotation() mgl64.Quat {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rot
}

// SetPosition moves the bone.
func (b *Bone) SetPosition(p mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = p
}

// SetRotation rotates the bone.
func (b *Bone) SetRotation(q mgl64.Quat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rot = q.Normalize()
}

// Head is the simulated character: root, head and two eyes.
type Head struct {
	Space    *blendshape.Space
	Root     *Bone
	Head     *Bone
	LeftEye  *Bone
	RightEye *Bone

	neck     mgl64.Vec3
	leftOff  mgl64.Vec3
	rightOff mgl64.Vec3
	elapsed  float64
}

// Eye and head placement of the simulated character.
const (
	NeckHeight   = 1.55
	EyeHeight    = 0.10
	EyeForward   = 0.08
	EyeHalfWidth = 0.032
)

// NewHead builds the simulated character standing at the origin.
func NewHead() *Head {
	h := &Head{
		Space:    SimSpace(),
		Root:     NewBone("root", mgl64.Vec3{}),
		neck:     mgl64.Vec3{0, NeckHeight, 0},
		leftOff:  mgl64.Vec3{EyeHalfWidth, EyeHeight, EyeForward},
		rightOff: mgl64.Vec3{-EyeHalfWidth, EyeHeight, EyeForward},
	}
	h.Head = NewBone("head", h.neck)
	h.LeftEye = NewBone("eye_L", h.neck.Add(h.leftOff))
	h.RightEye = NewBone("eye_R", h.neck.Add(h.rightOff))
	return h
}

// SetHeadRotation turns the head and carries the eye sockets along.
// Eye rotations are left to the gaze system.
func (h *Head) SetHeadRotation(q mgl64.Quat) {
	h.Head.SetRotation(q)
	h.LeftEye.SetPosition(h.neck.Add(q.Rotate(h.leftOff)))
	h.RightEye.SetPosition(h.neck.Add(q.Rotate(h.rightOff)))
}

// Idle advances a slow scripted head sway by dt seconds.
func (h *Head) Idle(dt float64) {
	h.elapsed += dt
	yaw := 0.12 * math.Sin(2*math.Pi*0.05*h.elapsed)
	pitch := 0.04 * math.Sin(2*math.Pi*0.11*h.elapsed+0.7)
	q := mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0}).Mul(mgl64.QuatRotate(pitch, mgl64.Vec3{1, 0, 0}))
	h.SetHeadRotation(q)
}
