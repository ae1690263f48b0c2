// Package gaze drives where the character looks: target selection, the
// smoothed aim point, eye orientation and the gaze blend shapes.
package gaze

import (
	"log/slog"
	"math/rand/v2"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/frame"
	"github.com/teslashibe/go-face/pkg/interest"
)

// Config holds the gaze settings.
type Config struct {
	Mode  Mode
	Agent bool
	Eyes  EyesConfig

	// AgentVolume is the interest volume around the root in agent mode.
	AgentVolume interest.Volume
	// HeadVolume is the interest volume on the head otherwise.
	HeadVolume interest.Volume
}

// DefaultConfig returns probabilistic gaze with blinking and
// micro-variations.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeProbabilistic,
		Eyes:        EyesConfig{Axis: AxisZ, Blinking: true, MicroVariations: true},
		AgentVolume: DefaultAgentVolume(),
		HeadVolume:  DefaultHeadVolume(),
	}
}

// Options wires a System to its collaborators. Field, Scanner and IK are
// optional.
type Options struct {
	Store     expression.Store
	Total     int
	Anatomy   Anatomy
	Field     *interest.Field
	Scanner   *interest.Scanner
	IK        IKSink
	Scheduler *frame.Scheduler
	Rand      *rand.Rand
	Logger    *slog.Logger
	Config    Config
}

// System is the complete gaze channel.
type System struct {
	logger   *slog.Logger
	driver   *Driver
	eyes     *Eyes
	selector *Selector
	ik       IKSink
	enabled  bool
}

// New builds and starts a gaze system. Missing eye bones disable eye
// orientation with a warning; everything else keeps running.
func New(o Options) *System {
	logger := log.Component(o.Logger, "gaze")
	if o.Scheduler == nil {
		o.Scheduler = frame.NewScheduler()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.Config.AgentVolume == nil {
		o.Config.AgentVolume = DefaultAgentVolume()
	}
	if o.Config.HeadVolume == nil {
		o.Config.HeadVolume = DefaultHeadVolume()
	}

	s := &System{
		logger:  logger,
		driver:  NewDriver(o.Store, o.Total, o.Logger),
		ik:      o.IK,
		enabled: true,
	}

	root, head := o.Anatomy.Root, o.Anatomy.Head
	if root == nil {
		root = origin
	}
	if head == nil {
		head = root
	}

	if err := o.Anatomy.Validate(); err != nil {
		logger.Warn("incomplete anatomy", "error", err)
	}
	var view viewpoint = headView{head: head}
	eyes, err := NewEyes(o.Anatomy, o.Config.Eyes, s.driver, o.Scheduler, o.Rand, logger)
	if err != nil {
		logger.Warn("eye orientation disabled", "error", err)
	} else {
		s.eyes = eyes
		view = eyes
	}

	s.selector = newSelector(o.Config, root, head, view, o.Field, o.Scanner, o.Scheduler, o.Rand, logger)
	s.selector.Start()
	return s
}

// Driver returns the gaze blend-shape driver.
func (s *System) Driver() *Driver { return s.driver }

// Eyes returns the eye controller, or nil when the rig has no eyes.
func (s *System) Eyes() *Eyes { return s.eyes }

// Selector returns the target selector.
func (s *System) Selector() *Selector { return s.selector }

// Enabled reports whether the system runs.
func (s *System) Enabled() bool { return s.enabled }

// Late steps target selection, writes the IK request, orients the eyes
// and applies the resulting gaze intensities. It runs after body
// animation.
func (s *System) Late(dt float64) {
	if !s.enabled {
		return
	}
	s.selector.Late(dt)
	if s.ik != nil {
		s.ik.SetLookAt(s.selector.LookAt())
	}
	if s.eyes != nil {
		s.eyes.Look(s.selector.Aim().Position())
	}
	s.driver.Update(dt)
}

// SetMode switches the gaze behavior. While disabled the mode is stored
// and entered on Enable.
func (s *System) SetMode(m Mode) { s.selector.SetMode(m) }

// Disable cancels every gaze task, zeroes the blend shapes and releases
// the IK.
func (s *System) Disable() {
	if !s.enabled {
		return
	}
	s.enabled = false
	s.selector.Stop()
	if s.eyes != nil {
		s.eyes.Stop()
	}
	s.driver.Disable()
	if s.ik != nil {
		s.ik.SetLookAt(LookAt{Position: s.selector.Aim().Position()})
	}
	s.logger.Info("gaze disabled")
}

// Enable restarts the current mode and the eye timers.
func (s *System) Enable() {
	if s.enabled {
		return
	}
	s.enabled = true
	s.driver.Enable()
	if s.eyes != nil {
		s.eyes.Start()
	}
	s.selector.Start()
	s.logger.Info("gaze enabled")
}
