package gaze

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Transition bounds for the aim point, in seconds.
const (
	MinTransition = 0.05
	MaxTransition = 1.0
	// smoothFraction scales the transition duration into the damping
	// smooth time so the spring is settled well before the snap.
	smoothFraction = 0.25
)

// AimPoint is the smoothed position the eyes and IK look at. It is stored
// relative to a parent bone so it follows the body or head while idle.
type AimPoint struct {
	parent Bone
	local  mgl64.Vec3

	target   uuid.UUID
	tracking bool
	velocity mgl64.Vec3
	duration float64
	elapsed  float64
}

// NewAimPoint places an aim point at world position p under parent.
func NewAimPoint(parent Bone, p mgl64.Vec3) *AimPoint {
	if parent == nil {
		parent = origin
	}
	a := &AimPoint{parent: parent}
	a.setWorld(p)
	return a
}

// Position returns the world position.
func (a *AimPoint) Position() mgl64.Vec3 {
	return a.parent.Position().Add(a.parent.Rotation().Rotate(a.local))
}

func (a *AimPoint) setWorld(p mgl64.Vec3) {
	a.local = a.parent.Rotation().Inverse().Rotate(p.Sub(a.parent.Position()))
}

// Parent returns the frame the aim point follows.
func (a *AimPoint) Parent() Bone { return a.parent }

// Reparent moves the aim point under p, keeping its world position.
func (a *AimPoint) Reparent(p Bone) {
	if p == nil {
		p = origin
	}
	if p == a.parent {
		return
	}
	world := a.Position()
	a.parent = p
	a.setWorld(world)
}

// Set jumps to p and drops any transition.
func (a *AimPoint) Set(p mgl64.Vec3) {
	a.setWorld(p)
	a.tracking = false
	a.target = uuid.Nil
	a.velocity = mgl64.Vec3{}
}

// Target returns the identity being tracked.
func (a *AimPoint) Target() (uuid.UUID, bool) { return a.target, a.tracking }

// Transition returns the duration and elapsed time of the current
// transition.
func (a *AimPoint) Transition() (duration, elapsed float64) { return a.duration, a.elapsed }

// Begin starts a transition toward the target identified by id lasting
// duration seconds. Velocity is reset.
func (a *AimPoint) Begin(id uuid.UUID, duration float64) {
	a.target = id
	a.tracking = true
	a.velocity = mgl64.Vec3{}
	a.duration = math.Max(MinTransition, math.Min(MaxTransition, duration))
	a.elapsed = 0
}

// Step damps toward the current position of the tracked target. Once the
// transition has elapsed the aim point sticks to the target.
func (a *AimPoint) Step(target mgl64.Vec3, dt float64) {
	if !a.tracking {
		return
	}
	a.elapsed += dt
	if a.elapsed+1e-9 >= a.duration {
		a.setWorld(target)
		a.velocity = mgl64.Vec3{}
		return
	}
	p := SmoothDampVec3(a.Position(), target, &a.velocity, a.duration*smoothFraction, dt)
	a.setWorld(p)
}

// TransitionDuration returns the transition time for a jump of dist
// metres given a factor drawn from [0.2,0.3).
func TransitionDuration(dist, factor float64) float64 {
	return math.Max(MinTransition, math.Min(MaxTransition, dist*factor))
}
