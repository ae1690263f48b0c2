package gaze

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	worldUp = mgl64.Vec3{0, 1, 0}
	forward = mgl64.Vec3{0, 0, 1}
)

// Axis is the local axis an eye bone looks along.
type Axis int

const (
	AxisZ Axis = iota
	AxisX
	AxisY
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis resolves "x", "y" or "z".
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z", "":
		return AxisZ, nil
	default:
		return 0, fmt.Errorf("unknown eye axis %q", s)
	}
}

// Vector returns the unit vector of a, negated when inverted.
func (a Axis) Vector(inverted bool) mgl64.Vec3 {
	var v mgl64.Vec3
	switch a {
	case AxisX:
		v = mgl64.Vec3{1, 0, 0}
	case AxisY:
		v = mgl64.Vec3{0, 1, 0}
	default:
		v = forward
	}
	if inverted {
		return v.Mul(-1)
	}
	return v
}

// AxisCorrection returns the rotation that maps the bone's forward axis
// onto +Z, so LookRotation(d) * correction points that axis along d.
func AxisCorrection(a Axis, inverted bool) mgl64.Quat {
	sense := 1.0
	if inverted {
		sense = -1
	}
	switch a {
	case AxisX:
		return mgl64.QuatRotate(-math.Pi/2*sense, worldUp)
	case AxisY:
		return mgl64.QuatRotate(math.Pi/2*sense, mgl64.Vec3{1, 0, 0})
	default:
		if inverted {
			return mgl64.QuatRotate(math.Pi, worldUp)
		}
		return mgl64.QuatIdent()
	}
}

// LookRotation returns the rotation taking +Z to dir with +Y kept as close
// to up as possible. A zero dir yields identity.
func LookRotation(dir, up mgl64.Vec3) mgl64.Quat {
	if dir.Len() < 1e-12 {
		return mgl64.QuatIdent()
	}
	z := dir.Normalize()
	x := up.Cross(z)
	if x.Len() < 1e-9 {
		// dir is parallel to up; pick any perpendicular.
		x = mgl64.Vec3{1, 0, 0}.Cross(z)
		if x.Len() < 1e-9 {
			x = mgl64.Vec3{0, 0, 1}.Cross(z)
		}
	}
	x = x.Normalize()
	y := z.Cross(x)
	return mgl64.Mat4ToQuat(mgl64.Mat3FromCols(x, y, z).Mat4()).Normalize()
}

// ProjectOnPlane removes the component of v along normal.
func ProjectOnPlane(v, normal mgl64.Vec3) mgl64.Vec3 {
	sq := normal.Dot(normal)
	if sq < 1e-18 {
		return v
	}
	return v.Sub(normal.Mul(v.Dot(normal) / sq))
}

// SignedAngle returns the angle in degrees from a to b, positive when the
// rotation from a to b is counter-clockwise around axis.
func SignedAngle(a, b, axis mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la < 1e-12 || lb < 1e-12 {
		return 0
	}
	cos := math.Max(-1, math.Min(1, a.Dot(b)/(la*lb)))
	angle := mgl64.RadToDeg(math.Acos(cos))
	if axis.Dot(a.Cross(b)) < 0 {
		return -angle
	}
	return angle
}

// SmoothDamp moves current toward target as a critically damped spring
// that reaches it in about smoothTime. velocity is updated in place.
// A non-positive dt leaves both unchanged.
func SmoothDamp(current, target float64, velocity *float64, smoothTime, dt float64) float64 {
	if dt <= 0 {
		return current
	}
	smoothTime = math.Max(1e-4, smoothTime)
	omega := 2 / smoothTime
	x := omega * dt
	exp := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)
	change := current - target
	temp := (*velocity + omega*change) * dt
	*velocity = (*velocity - omega*temp) * exp
	out := target + (change+temp)*exp

	// Never overshoot.
	if (target-current > 0) == (out > target) {
		out = target
		*velocity = (out - target) / dt
	}
	return out
}

// SmoothDampVec3 applies SmoothDamp per axis.
func SmoothDampVec3(current, target mgl64.Vec3, velocity *mgl64.Vec3, smoothTime, dt float64) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := 0; i < 3; i++ {
		out[i] = SmoothDamp(current[i], target[i], &velocity[i], smoothTime, dt)
	}
	return out
}
