package gaze

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Bone is a read-only transform.
type Bone interface {
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
}

// Joint is a bone the gaze system may rotate.
type Joint interface {
	Bone
	SetRotation(q mgl64.Quat)
}

// Anatomy is the set of transforms the gaze system reads and drives.
// Root and Head frame the aim point; the eyes are rotated every late frame.
type Anatomy struct {
	Root     Bone
	Head     Bone
	LeftEye  Joint
	RightEye Joint
}

// Validate reports which bones are missing.
func (a Anatomy) Validate() error {
	var missing []string
	if a.Root == nil {
		missing = append(missing, "root")
	}
	if a.Head == nil {
		missing = append(missing, "head")
	}
	if a.LeftEye == nil {
		missing = append(missing, "left eye")
	}
	if a.RightEye == nil {
		missing = append(missing, "right eye")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrAnatomyMissing, strings.Join(missing, ", "))
	}
	return nil
}

// LookAt is the look-at request written to the IK sink.
type LookAt struct {
	Weight     float64
	BodyWeight float64
	HeadWeight float64
	Position   mgl64.Vec3
}

// IKSink receives one LookAt per late frame.
type IKSink interface {
	SetLookAt(LookAt)
}

// IKFunc adapts a function to IKSink.
type IKFunc func(LookAt)

// SetLookAt calls f.
func (f IKFunc) SetLookAt(l LookAt) { f(l) }

// staticBone is a fixed transform, used when the rig has no root.
type staticBone struct {
	pos mgl64.Vec3
	rot mgl64.Quat
}

func (b staticBone) Position() mgl64.Vec3 { return b.pos }
func (b staticBone) Rotation() mgl64.Quat { return b.rot }

var origin Bone = staticBone{rot: mgl64.QuatIdent()}
