package gaze

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/frame"
)

// AngleGain converts the vertical gaze angle in degrees into a gaze-up or
// gaze-down intensity.
const AngleGain = 15.0

// Blink and micro-saccade timings, in seconds.
const (
	BlinkMinWait  = 3.0
	BlinkMaxWait  = 8.0
	BlinkDuration = 0.1

	MicroMinWait = 1.0
	MicroMaxWait = 3.0
	MicroMinHold = 0.2
	MicroMaxHold = 0.3
	// MicroSpread is the offset range as a fraction of the aim distance.
	MicroSpread = 0.1
)

// EyesConfig selects the eye bone axis and the procedural extras.
type EyesConfig struct {
	Axis            Axis
	InvertAxis      bool
	Blinking        bool
	MicroVariations bool
}

// Eyes orients the eye bones toward the aim point and feeds the vertical
// gaze angle and blinks into the gaze driver.
type Eyes struct {
	logger *slog.Logger
	head   Bone
	left   Joint
	right  Joint
	driver *Driver
	sched  *frame.Scheduler
	rnd    *rand.Rand

	correction mgl64.Quat
	local      mgl64.Vec3

	cfg      EyesConfig
	blink    *frame.Group
	micro    *frame.Group
	offset   mgl64.Vec3
	angle    float64
	distance float64
	stopped  bool
}

// NewEyes binds the eye bones of a. It fails with ErrAnatomyMissing when
// the head or either eye is absent.
func NewEyes(a Anatomy, cfg EyesConfig, d *Driver, sched *frame.Scheduler, rnd *rand.Rand, logger *slog.Logger) (*Eyes, error) {
	if a.Head == nil || a.LeftEye == nil || a.RightEye == nil {
		return nil, fmt.Errorf("%w: eye orientation needs head and both eyes", ErrAnatomyMissing)
	}
	if logger == nil {
		logger = log.L()
	}
	e := &Eyes{
		logger: logger,
		head:   a.Head,
		left:   a.LeftEye,
		right:  a.RightEye,
		driver: d,
		sched:  sched,
		rnd:    rnd,
		blink:  frame.NewGroup(context.Background()),
		micro:  frame.NewGroup(context.Background()),
	}
	e.setAxis(cfg.Axis, cfg.InvertAxis)

	// The neutral direction is the eye's forward axis in head space, taken
	// from the rest pose.
	rest := a.LeftEye.Rotation().Rotate(cfg.Axis.Vector(cfg.InvertAxis))
	e.local = a.Head.Rotation().Inverse().Rotate(rest)

	e.SetBlinking(cfg.Blinking)
	e.SetMicroVariations(cfg.MicroVariations)
	return e, nil
}

func (e *Eyes) setAxis(a Axis, inverted bool) {
	e.cfg.Axis, e.cfg.InvertAxis = a, inverted
	e.correction = AxisCorrection(a, inverted)
}

// Config returns the current settings.
func (e *Eyes) Config() EyesConfig { return e.cfg }

// Average returns the midpoint between the eyes.
func (e *Eyes) Average() mgl64.Vec3 {
	return e.left.Position().Add(e.right.Position()).Mul(0.5)
}

// Neutral returns the point one metre straight ahead of the eyes.
func (e *Eyes) Neutral() mgl64.Vec3 {
	return e.Average().Add(e.head.Rotation().Rotate(e.local))
}

// Angle returns the last vertical gaze angle in degrees, positive down.
func (e *Eyes) Angle() float64 { return e.angle }

// Offset returns the micro-variation currently applied.
func (e *Eyes) Offset() mgl64.Vec3 { return e.offset }

// Look rotates both eyes toward aim and requests the matching gaze-up or
// gaze-down intensity.
func (e *Eyes) Look(aim mgl64.Vec3) {
	up := e.head.Rotation().Rotate(worldUp)
	looked := aim.Add(e.offset)
	for _, eye := range []Joint{e.left, e.right} {
		q := LookRotation(looked.Sub(eye.Position()), up).Mul(e.correction)
		eye.SetRotation(q)
	}

	e.distance = aim.Sub(e.Average()).Len()
	e.angle = e.verticalAngle(aim)
	down, upw := 0.0, 0.0
	if e.angle >= 0 {
		down = clamp(e.angle*AngleGain, 0, 100)
	} else {
		upw = clamp(-e.angle*AngleGain, 0, 100)
	}
	_ = e.driver.Set(expression.GazeUp, upw)
	_ = e.driver.Set(expression.GazeDown, down)
}

// verticalAngle measures the pitch between the neutral direction and the
// direction to aim, in the plane spanned by the eyes' up and forward.
func (e *Eyes) verticalAngle(aim mgl64.Vec3) float64 {
	avg := e.Average()
	normal := e.left.Position().Sub(e.right.Position())
	gaze := ProjectOnPlane(aim.Sub(avg), normal)
	neutral := ProjectOnPlane(e.Neutral().Sub(avg), normal)
	return SignedAngle(neutral, gaze, normal)
}

// SetAxis changes the eye forward axis.
func (e *Eyes) SetAxis(a Axis, inverted bool) { e.setAxis(a, inverted) }

// SetBlinking turns procedural blinking on or off. Stopped eyes keep
// the setting for Start.
func (e *Eyes) SetBlinking(on bool) {
	e.cfg.Blinking = on
	e.logger.Debug("blinking", "enabled", on)
	if e.stopped {
		return
	}
	ctx := e.blink.Restart()
	_ = e.driver.Set(expression.Blink, 0)
	if on {
		e.scheduleBlink(ctx)
	}
}

func (e *Eyes) scheduleBlink(ctx context.Context) {
	wait := uniform(e.rnd, BlinkMinWait, BlinkMaxWait)
	e.sched.After(ctx, "gaze.blink", wait, func() {
		_ = e.driver.Set(expression.Blink, 100)
		e.sched.After(ctx, "gaze.blink.open", BlinkDuration, func() {
			_ = e.driver.Set(expression.Blink, 0)
			e.scheduleBlink(ctx)
		})
	})
}

// SetMicroVariations turns micro-saccades on or off. Stopped eyes keep
// the setting for Start.
func (e *Eyes) SetMicroVariations(on bool) {
	e.cfg.MicroVariations = on
	e.logger.Debug("micro-variations", "enabled", on)
	if e.stopped {
		return
	}
	ctx := e.micro.Restart()
	e.offset = mgl64.Vec3{}
	if on {
		e.scheduleMicro(ctx)
	}
}

func (e *Eyes) scheduleMicro(ctx context.Context) {
	wait := uniform(e.rnd, MicroMinWait, MicroMaxWait)
	e.sched.After(ctx, "gaze.micro", wait, func() {
		dist := e.distance
		v := uniform(e.rnd, -MicroSpread*dist, MicroSpread*dist)
		e.offset = mgl64.Vec3{v, v, v}
		hold := uniform(e.rnd, MicroMinHold, MicroMaxHold)
		e.sched.After(ctx, "gaze.micro.hold", hold, func() {
			e.offset = mgl64.Vec3{}
			e.scheduleMicro(ctx)
		})
	})
}

// Start resumes blinking and micro-saccades as configured.
func (e *Eyes) Start() {
	e.stopped = false
	e.SetBlinking(e.cfg.Blinking)
	e.SetMicroVariations(e.cfg.MicroVariations)
}

// Stop cancels blinking and micro-saccades until the next Start.
func (e *Eyes) Stop() {
	e.stopped = true
	e.blink.Cancel()
	e.micro.Cancel()
	e.offset = mgl64.Vec3{}
}
