package gaze

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/teslashibe/go-face/pkg/frame"
	"github.com/teslashibe/go-face/pkg/interest"
)

// Selection and random mode timings, in seconds.
const (
	HoldMin = 2.0
	HoldMax = 4.0

	RandomFirstDelay = 3.0
	RandomMinDelay   = 3.0
	RandomMaxDelay   = 5.0
	// RandomJitter bounds the random offset around neutral, in metres.
	RandomJitter = 0.2

	transitionMinFactor = 0.2
	transitionMaxFactor = 0.3
)

// Agent mode look-at weights.
const (
	AgentWeight     = 1.0
	AgentBodyWeight = 0.05
	AgentHeadWeight = 0.5
)

// viewpoint is where distances are measured from and what "straight
// ahead" means.
type viewpoint interface {
	Average() mgl64.Vec3
	Neutral() mgl64.Vec3
}

// headView stands in for the eyes when the rig has none.
type headView struct{ head Bone }

func (h headView) Average() mgl64.Vec3 { return h.head.Position() }

func (h headView) Neutral() mgl64.Vec3 {
	return h.head.Position().Add(h.head.Rotation().Rotate(forward))
}

// Selector runs the gaze behavior modes and owns the aim point.
type Selector struct {
	logger *slog.Logger
	sched  *frame.Scheduler
	group  *frame.Group
	rnd    *rand.Rand

	field   *interest.Field
	scanner *interest.Scanner
	root    Bone
	head    Bone
	view    viewpoint

	aim  *AimPoint
	pond *Ponderation

	mode        Mode
	agent       bool
	agentVolume interest.Volume
	headVolume  interest.Volume

	selected    int
	rolledCount int
	hold        float64
	sinceRoll   float64
	rerolls     uint64
	onReroll    func(index int)

	scripted mgl64.Vec3
	stopped  bool
}

func newSelector(cfg Config, root, head Bone, view viewpoint, field *interest.Field, scanner *interest.Scanner,
	sched *frame.Scheduler, rnd *rand.Rand, logger *slog.Logger) *Selector {
	s := &Selector{
		logger:      logger,
		sched:       sched,
		group:       frame.NewGroup(context.Background()),
		rnd:         rnd,
		field:       field,
		scanner:     scanner,
		root:        root,
		head:        head,
		view:        view,
		pond:        NewPonderation(),
		mode:        cfg.Mode,
		agent:       cfg.Agent,
		agentVolume: cfg.AgentVolume,
		headVolume:  cfg.HeadVolume,
		selected:    -1,
		rolledCount: -1,
	}
	s.aim = NewAimPoint(head, view.Neutral())
	s.scripted = view.Neutral()
	return s
}

// Mode returns the active behavior.
func (s *Selector) Mode() Mode { return s.mode }

// Aim returns the aim point.
func (s *Selector) Aim() *AimPoint { return s.aim }

// Neutral returns the straight-ahead point.
func (s *Selector) Neutral() mgl64.Vec3 { return s.view.Neutral() }

// Agent reports whether agent mode is on.
func (s *Selector) Agent() bool { return s.agent }

// Selected returns the index of the chosen candidate, if any.
func (s *Selector) Selected() (int, bool) { return s.selected, s.selected >= 0 }

// Weights returns the last candidate weights.
func (s *Selector) Weights() []float64 { return s.pond.Weights() }

// Rerolls returns how many selections were made.
func (s *Selector) Rerolls() uint64 { return s.rerolls }

// OnReroll is called with the chosen index after every selection.
func (s *Selector) OnReroll(fn func(index int)) { s.onReroll = fn }

// Start enters the configured mode.
func (s *Selector) Start() {
	s.stopped = false
	s.enter(s.mode)
	s.configureScanner()
}

// SetMode switches behavior. Setting the current mode is a no-op. A
// stopped selector only records the mode; Start enters it.
func (s *Selector) SetMode(m Mode) {
	if m == s.mode {
		return
	}
	if s.stopped {
		s.logger.Debug("gaze mode deferred", "from", s.mode, "to", m)
		s.mode = m
		return
	}
	s.enter(m)
}

// Stop cancels every task of the current mode until the next Start.
func (s *Selector) Stop() {
	s.stopped = true
	s.group.Cancel()
}

// Late runs probabilistic selection and moves the aim point. It must run
// before the aim is read for the frame.
func (s *Selector) Late(dt float64) {
	if s.stopped || s.mode != ModeProbabilistic {
		return
	}
	s.probabilistic(dt)
}

// SetTarget assigns the scripted target. In scripted mode the aim point
// moves there at once.
func (s *Selector) SetTarget(p mgl64.Vec3) {
	s.scripted = p
	if s.mode == ModeScripted {
		s.aim.Set(p)
	}
}

// SetAgentMode switches between agent and passive look-at. In agent mode
// the interest volume surrounds the body; otherwise it is a view cone on
// the head.
func (s *Selector) SetAgentMode(on bool) {
	s.agent = on
	s.configureScanner()
}

func (s *Selector) configureScanner() {
	if s.scanner == nil {
		return
	}
	if s.agent {
		s.scanner.Configure(s.root, s.agentVolume)
	} else {
		s.scanner.Configure(s.head, s.headVolume)
	}
}

// LookAt returns the IK request for this frame.
func (s *Selector) LookAt() LookAt {
	l := LookAt{Position: s.aim.Position()}
	if s.mode == ModeProbabilistic && s.agent {
		l.Weight, l.BodyWeight, l.HeadWeight = AgentWeight, AgentBodyWeight, AgentHeadWeight
	}
	return l
}

func (s *Selector) enter(m Mode) {
	ctx := s.group.Restart()
	prev := s.mode
	s.mode = m
	s.pond.Reset()
	s.selected, s.rolledCount = -1, -1

	switch m {
	case ModeProbabilistic:
		// stepped from Late
	case ModeRandom:
		s.aim.Reparent(s.head)
		s.jitter()
		s.sched.After(ctx, "gaze.random", RandomFirstDelay, func() { s.randomTick(ctx) })
	case ModeStatic:
		s.aim.Reparent(s.head)
		s.aim.Set(s.view.Neutral())
	case ModeScripted:
		s.aim.Reparent(s.root)
		s.scripted = s.view.Neutral()
		s.aim.Set(s.scripted)
	default:
		s.logger.Warn("gaze mode none, aim point left in place")
	}
	s.logger.Info("gaze mode", "from", prev, "to", m)
}

func (s *Selector) jitter() {
	v := uniform(s.rnd, -RandomJitter, RandomJitter)
	s.aim.Set(s.view.Neutral().Add(mgl64.Vec3{v, v, 0}))
}

func (s *Selector) randomTick(ctx context.Context) {
	s.jitter()
	s.sched.After(ctx, "gaze.random", uniform(s.rnd, RandomMinDelay, RandomMaxDelay), func() { s.randomTick(ctx) })
}

func (s *Selector) probabilistic(dt float64) {
	var entries []interest.Entry
	if s.field != nil {
		entries = s.field.Entries()
	}
	if len(entries) == 0 {
		if s.rolledCount != 0 {
			s.pond.Reset()
			s.selected, s.rolledCount = -1, 0
		}
		s.aim.Reparent(s.head)
		s.track(uuid.Nil, s.view.Neutral(), dt)
		return
	}

	s.aim.Reparent(s.root)
	weights := s.pond.Update(s.view.Average(), entries, dt)

	s.sinceRoll += dt
	if len(entries) != s.rolledCount || s.sinceRoll+1e-9 >= s.hold {
		s.reroll(weights)
	}
	if s.selected < 0 || s.selected >= len(entries) {
		s.track(uuid.Nil, s.view.Neutral(), dt)
		return
	}
	e := entries[s.selected]
	s.track(e.ID, e.Candidate.Position(), dt)
}

func (s *Selector) reroll(weights []float64) {
	s.rolledCount = len(weights)
	s.sinceRoll = 0
	s.hold = uniform(s.rnd, HoldMin, HoldMax)

	i, ok := Roll(weights, s.rnd)
	if !ok {
		s.logger.Debug("no weighted candidate, keeping target", "error", ErrEmptyCandidateSet)
		return
	}
	s.selected = i
	s.rerolls++
	if s.onReroll != nil {
		s.onReroll(i)
	}
}

// track starts a transition when the aimed identity changes and damps
// toward target.
func (s *Selector) track(id uuid.UUID, target mgl64.Vec3, dt float64) {
	if cur, ok := s.aim.Target(); !ok || cur != id {
		d := s.aim.Position().Sub(target).Len()
		factor := uniform(s.rnd, transitionMinFactor, transitionMaxFactor)
		s.aim.Begin(id, TransitionDuration(d, factor))
	}
	s.aim.Step(target, dt)
}

// DefaultAgentVolume surrounds the character.
func DefaultAgentVolume() interest.Volume { return interest.Sphere{Radius: 3} }

// DefaultHeadVolume is a view cone in front of the head.
func DefaultHeadVolume() interest.Volume {
	return interest.Cone{HalfAngle: 50 * math.Pi / 180, Range: 6}
}
