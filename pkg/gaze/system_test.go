package gaze

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/frame"
	"github.com/teslashibe/go-face/pkg/interest"
	"github.com/teslashibe/go-face/pkg/rig"
)

const dt = 1.0 / 60

type recordIK struct {
	last  LookAt
	calls int
}

func (r *recordIK) SetLookAt(l LookAt) {
	r.last = l
	r.calls++
}

type world struct {
	head  *rig.Head
	sched *frame.Scheduler
	field *interest.Field
	scan  *interest.Scanner
	ik    *recordIK
	sys   *System
}

func gazePreset(total int) *expression.Preset {
	p := expression.NewPreset("gaze", total)
	for _, c := range expression.GazeCategories() {
		v := make([]float64, total)
		v[int(c)%total] = 100
		p.Set(c, v)
	}
	return p
}

func anatomyOf(h *rig.Head) Anatomy {
	return Anatomy{Root: h.Root, Head: h.Head, LeftEye: h.LeftEye, RightEye: h.RightEye}
}

func newWorld(t *testing.T, cfg Config) *world {
	t.Helper()
	h := rig.NewHead()
	w := &world{
		head:  h,
		sched: frame.NewScheduler(),
		field: interest.NewField(log.Discard()),
		ik:    &recordIK{},
	}
	w.scan = interest.NewScanner(w.field, nil, nil)
	w.sys = New(Options{
		Store:     gazePreset(h.Space.Total()),
		Total:     h.Space.Total(),
		Anatomy:   anatomyOf(h),
		Field:     w.field,
		Scanner:   w.scan,
		IK:        w.ik,
		Scheduler: w.sched,
		Rand:      rand.New(rand.NewPCG(1, 2)),
		Logger:    log.Discard(),
		Config:    cfg,
	})
	return w
}

func quietConfig(m Mode) Config {
	cfg := DefaultConfig()
	cfg.Mode = m
	cfg.Eyes.Blinking = false
	cfg.Eyes.MicroVariations = false
	return cfg
}

func (w *world) step(n int) {
	for i := 0; i < n; i++ {
		w.sys.Late(dt)
		w.sched.Advance(dt)
	}
}

func TestNeutralIsAheadOfTheEyes(t *testing.T) {
	w := newWorld(t, quietConfig(ModeStatic))
	eyes := w.sys.Eyes()
	require.NotNil(t, eyes)

	avg := mgl64.Vec3{0, rig.NeckHeight + rig.EyeHeight, rig.EyeForward}
	assertVec(t, avg, eyes.Average(), 1e-12)
	assertVec(t, avg.Add(mgl64.Vec3{0, 0, 1}), eyes.Neutral(), 1e-12)
	assertVec(t, eyes.Neutral(), w.sys.Selector().Aim().Position(), 1e-9)
}

func TestEyesRequestGazeDownAndUp(t *testing.T) {
	w := newWorld(t, quietConfig(ModeScripted))
	eyes := w.sys.Eyes()
	avg := eyes.Average()

	w.sys.Selector().SetTarget(avg.Add(mgl64.Vec3{0, -1, 1}))
	w.step(1)
	assert.InDelta(t, 45, eyes.Angle(), 1e-9)
	assert.Equal(t, 100.0, w.sys.Driver().Intensity(expression.GazeDown))
	assert.Equal(t, 0.0, w.sys.Driver().Intensity(expression.GazeUp))

	w.sys.Selector().SetTarget(avg.Add(mgl64.Vec3{0, math.Tan(mgl64.DegToRad(2)), 1}))
	w.step(1)
	assert.InDelta(t, -2, eyes.Angle(), 1e-9)
	assert.InDelta(t, 30, w.sys.Driver().Intensity(expression.GazeUp), 1e-6)
	assert.Equal(t, 0.0, w.sys.Driver().Intensity(expression.GazeDown))
}

func TestEyesRotateTowardAim(t *testing.T) {
	w := newWorld(t, quietConfig(ModeScripted))
	target := mgl64.Vec3{2, 1.65, 2}
	w.sys.Selector().SetTarget(target)
	w.step(1)

	for _, eye := range []*rig.Bone{w.head.LeftEye, w.head.RightEye} {
		dir := target.Sub(eye.Position()).Normalize()
		assertVec(t, dir, eye.Rotation().Rotate(mgl64.Vec3{0, 0, 1}), 1e-9)
	}
}

func TestMissingAnatomyKeepsGazeRunning(t *testing.T) {
	sched := frame.NewScheduler()
	sys := New(Options{
		Total:     3,
		Scheduler: sched,
		Rand:      rand.New(rand.NewPCG(1, 2)),
		Logger:    log.Discard(),
		Config:    quietConfig(ModeProbabilistic),
	})
	assert.Nil(t, sys.Eyes())
	for i := 0; i < 10; i++ {
		sys.Late(dt)
		sched.Advance(dt)
	}
	assertVec(t, mgl64.Vec3{0, 0, 1}, sys.Selector().Aim().Position(), 1e-9)
}

func TestProbabilisticTracksOnlyCandidate(t *testing.T) {
	w := newWorld(t, quietConfig(ModeProbabilistic))
	obj := interest.NewObject("cup", mgl64.Vec3{0.5, 1.4, 1.5})
	w.field.Enter(obj)

	w.step(70)
	idx, ok := w.sys.Selector().Selected()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assertVec(t, obj.Position(), w.sys.Selector().Aim().Position(), 1e-9)
	assert.Equal(t, Bone(w.head.Root), w.sys.Selector().Aim().Parent())

	obj.MoveTo(mgl64.Vec3{-0.5, 1.4, 1.5})
	w.step(1)
	assertVec(t, obj.Position(), w.sys.Selector().Aim().Position(), 1e-9)
}

func TestProbabilisticLookAtFollowsInSameFrame(t *testing.T) {
	w := newWorld(t, quietConfig(ModeProbabilistic))
	obj := interest.NewObject("cup", mgl64.Vec3{0.5, 1.4, 1.5})
	w.field.Enter(obj)
	w.step(70)

	moved := mgl64.Vec3{-0.5, 1.4, 1.5}
	obj.MoveTo(moved)
	w.sys.Late(dt)
	assertVec(t, moved, w.ik.last.Position, 1e-9)
	dir := moved.Sub(w.head.LeftEye.Position()).Normalize()
	assertVec(t, dir, w.head.LeftEye.Rotation().Rotate(mgl64.Vec3{0, 0, 1}), 1e-9)
}

func TestProbabilisticSelectionIsStableBetweenRolls(t *testing.T) {
	w := newWorld(t, quietConfig(ModeProbabilistic))
	for i := 0; i < 3; i++ {
		w.field.Enter(interest.NewObject("obj", mgl64.Vec3{float64(i) - 1, 1.5, 2}))
	}
	w.step(1)
	first, ok := w.sys.Selector().Selected()
	require.True(t, ok)
	rolls := w.sys.Selector().Rerolls()

	for i := 0; i < 114; i++ {
		w.step(1)
		got, _ := w.sys.Selector().Selected()
		require.Equal(t, first, got, "frame %d", i)
	}
	assert.Equal(t, rolls, w.sys.Selector().Rerolls())
}

func TestProbabilisticRerollsOnCountChange(t *testing.T) {
	w := newWorld(t, quietConfig(ModeProbabilistic))
	var picks []int
	w.sys.Selector().OnReroll(func(i int) { picks = append(picks, i) })

	w.field.Enter(interest.NewObject("a", mgl64.Vec3{0, 1.5, 2}))
	w.step(1)
	w.field.Enter(interest.NewObject("b", mgl64.Vec3{1, 1.5, 2}))
	w.step(1)
	assert.Len(t, picks, 2)

	// Without changes a roll happens within four seconds.
	w.step(241)
	assert.GreaterOrEqual(t, len(picks), 3)
	assert.Len(t, w.sys.Selector().Weights(), 2)
}

func TestProbabilisticEmptyFieldAimsNeutral(t *testing.T) {
	w := newWorld(t, quietConfig(ModeProbabilistic))
	obj := interest.NewObject("a", mgl64.Vec3{1, 1.5, 2})
	id := w.field.Enter(obj)
	w.step(70)

	w.field.Exit(id)
	w.step(70)
	_, ok := w.sys.Selector().Selected()
	assert.False(t, ok)
	assertVec(t, w.sys.Eyes().Neutral(), w.sys.Selector().Aim().Position(), 1e-9)
	assert.Equal(t, Bone(w.head.Head), w.sys.Selector().Aim().Parent())
}

func TestRandomModeJittersAroundNeutral(t *testing.T) {
	w := newWorld(t, quietConfig(ModeScripted))
	neutral := w.sys.Eyes().Neutral()
	w.sys.Selector().SetTarget(mgl64.Vec3{3, 2, 4})

	w.sys.SetMode(ModeRandom)
	first := w.sys.Selector().Aim().Position()
	off := first.Sub(neutral)
	assert.InDelta(t, off.X(), off.Y(), 1e-9)
	assert.InDelta(t, 0, off.Z(), 1e-9)
	assert.LessOrEqual(t, math.Abs(off.X()), RandomJitter)
	assert.Equal(t, []string{"gaze.random"}, w.sched.Names())

	w.step(1)
	assertVec(t, first, w.ik.last.Position, 1e-9)

	w.step(178)
	assertVec(t, first, w.sys.Selector().Aim().Position(), 1e-9)

	w.step(2)
	next := w.sys.Selector().Aim().Position()
	assert.NotEqual(t, first, next)
	off = next.Sub(neutral)
	assert.InDelta(t, off.X(), off.Y(), 1e-9)
	assert.LessOrEqual(t, math.Abs(off.X()), RandomJitter)
}

func TestModeSwitchCancelsTasks(t *testing.T) {
	w := newWorld(t, quietConfig(ModeRandom))
	w.step(1)
	require.Contains(t, w.sched.Names(), "gaze.random")

	w.sys.SetMode(ModeStatic)
	assert.Empty(t, w.sched.Names())
	assert.Equal(t, ModeStatic, w.sys.Selector().Mode())
	assertVec(t, w.sys.Eyes().Neutral(), w.sys.Selector().Aim().Position(), 1e-9)

	w.sys.SetMode(ModeProbabilistic)
	assert.Empty(t, w.sched.Names())

	w.sys.SetMode(ModeNone)
	assert.Empty(t, w.sched.Names())
}

func TestScriptedTargetAppliesImmediately(t *testing.T) {
	w := newWorld(t, quietConfig(ModeScripted))
	p := mgl64.Vec3{-1, 2, 3}
	w.sys.Selector().SetTarget(p)
	assertVec(t, p, w.sys.Selector().Aim().Position(), 1e-9)
	assert.Equal(t, Bone(w.head.Root), w.sys.Selector().Aim().Parent())

	w.sys.SetMode(ModeStatic)
	assert.Equal(t, Bone(w.head.Head), w.sys.Selector().Aim().Parent())
}

func TestAgentModeLookAtAndVolume(t *testing.T) {
	cfg := quietConfig(ModeProbabilistic)
	cfg.Agent = true
	w := newWorld(t, cfg)
	assert.IsType(t, interest.Sphere{}, w.scan.Volume())

	w.step(1)
	assert.Equal(t, AgentWeight, w.ik.last.Weight)
	assert.Equal(t, AgentBodyWeight, w.ik.last.BodyWeight)
	assert.Equal(t, AgentHeadWeight, w.ik.last.HeadWeight)

	w.sys.Selector().SetAgentMode(false)
	assert.IsType(t, interest.Cone{}, w.scan.Volume())
	w.step(1)
	assert.Equal(t, 0.0, w.ik.last.Weight)

	w.sys.Selector().SetAgentMode(true)
	w.sys.SetMode(ModeStatic)
	w.step(1)
	assert.Equal(t, 0.0, w.ik.last.Weight)
}

func TestBlinkingClosesAndOpens(t *testing.T) {
	cfg := quietConfig(ModeStatic)
	cfg.Eyes.Blinking = true
	w := newWorld(t, cfg)

	closed, reopened := false, false
	for i := 0; i < 600; i++ {
		w.step(1)
		b := w.sys.Driver().Intensity(expression.Blink)
		if b == 100 {
			closed = true
		} else if closed && b == 0 {
			reopened = true
			break
		}
	}
	assert.True(t, closed)
	assert.True(t, reopened)
}

func TestMicroVariationsOffsetAndReturn(t *testing.T) {
	cfg := quietConfig(ModeStatic)
	cfg.Eyes.MicroVariations = true
	w := newWorld(t, cfg)
	eyes := w.sys.Eyes()

	var seen mgl64.Vec3
	for i := 0; i < 200 && seen == (mgl64.Vec3{}); i++ {
		w.step(1)
		seen = eyes.Offset()
	}
	require.NotEqual(t, mgl64.Vec3{}, seen)
	assert.Equal(t, seen.X(), seen.Y())
	assert.Equal(t, seen.Y(), seen.Z())
	assert.LessOrEqual(t, math.Abs(seen.X()), MicroSpread*1.0+1e-9)

	w.step(20)
	assert.Equal(t, mgl64.Vec3{}, eyes.Offset())
}

func TestDisableStopsEverything(t *testing.T) {
	cfg := quietConfig(ModeRandom)
	cfg.Eyes.Blinking = true
	w := newWorld(t, cfg)
	w.step(1)
	require.NotEmpty(t, w.sched.Names())

	w.sys.Disable()
	assert.False(t, w.sys.Enabled())
	assert.Empty(t, w.sched.Names())
	assert.False(t, w.sys.Driver().Enabled())

	calls := w.ik.calls
	w.step(5)
	assert.Equal(t, calls, w.ik.calls)

	w.sys.Enable()
	assert.ElementsMatch(t, []string{"gaze.blink", "gaze.random"}, w.sched.Names())
}

func TestDisabledGazeSchedulesNothing(t *testing.T) {
	w := newWorld(t, quietConfig(ModeStatic))
	eyes := w.sys.Eyes()
	aim := w.sys.Selector().Aim().Position()

	w.sys.Disable()
	w.sys.SetMode(ModeRandom)
	eyes.SetBlinking(true)
	eyes.SetMicroVariations(true)
	assert.False(t, w.sys.Enabled())
	assert.Empty(t, w.sched.Names())
	assert.Equal(t, ModeRandom, w.sys.Selector().Mode())
	assert.True(t, eyes.Config().Blinking)

	w.step(400)
	assert.Empty(t, w.sched.Names())
	assertVec(t, aim, w.sys.Selector().Aim().Position(), 1e-12)
	assert.Equal(t, 0.0, w.sys.Driver().Intensity(expression.Blink))

	w.sys.Enable()
	assert.ElementsMatch(t, []string{"gaze.blink", "gaze.micro", "gaze.random"}, w.sched.Names())
}

func TestDisabledGazeDoesNotReroll(t *testing.T) {
	w := newWorld(t, quietConfig(ModeStatic))
	w.field.Enter(interest.NewObject("cup", mgl64.Vec3{0.5, 1.4, 1.5}))
	rolled := 0
	w.sys.Selector().OnReroll(func(int) { rolled++ })

	w.sys.Disable()
	w.sys.SetMode(ModeProbabilistic)
	w.step(30)
	assert.Zero(t, rolled)
	_, ok := w.sys.Selector().Selected()
	assert.False(t, ok)

	w.sys.Enable()
	w.step(1)
	assert.Equal(t, 1, rolled)
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeProbabilistic, ModeRandom, ModeStatic, ModeScripted, ModeNone} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	var m Mode
	require.NoError(t, m.UnmarshalText([]byte(" Random ")))
	assert.Equal(t, ModeRandom, m)

	_, err := ParseMode("wander")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
