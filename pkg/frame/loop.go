// Package frame runs the engine on a single logical thread: a fixed-rate
// loop with ordered phases and a scheduler for long-running behaviors.
package frame

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-face/internal/log"
)

// Phase orders work inside one frame.
type Phase int

const (
	// Update runs driver logic and target selection.
	Update Phase = iota
	// Late runs after Update; eye orientation and IK output live here.
	Late
	// Output merges channels and writes the sink.
	Output

	numPhases
)

func (p Phase) String() string {
	switch p {
	case Update:
		return "update"
	case Late:
		return "late"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Config controls the loop.
type Config struct {
	// Rate is the frame period. Default 1/60 s.
	Rate time.Duration
	// MaxDelta caps the measured frame time handed to systems. Default 0.1 s.
	MaxDelta time.Duration
	// Backlog is the capacity of the posted command queue.
	Backlog int
}

// DefaultConfig returns a 60 Hz loop.
func DefaultConfig() Config {
	return Config{
		Rate:     time.Second / 60,
		MaxDelta: 100 * time.Millisecond,
		Backlog:  256,
	}
}

// Observer is told about every completed frame.
type Observer interface {
	FrameDone(dt float64, took time.Duration)
}

type hook struct {
	name string
	fn   func(dt float64)
}

// Loop owns all engine state. Other goroutines talk to it through Post
// and Do.
type Loop struct {
	cfg    Config
	logger *slog.Logger

	hooks     [numPhases][]hook
	ends      []hook
	sched     *Scheduler
	posted    chan func()
	observers []Observer

	frames  uint64
	dropped uint64
}

// NewLoop creates a loop. A nil logger uses the global one.
func NewLoop(cfg Config, logger *slog.Logger) *Loop {
	def := DefaultConfig()
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = def.MaxDelta
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = def.Backlog
	}
	return &Loop{
		cfg:    cfg,
		logger: log.Component(logger, "frame"),
		sched:  NewScheduler(),
		posted: make(chan func(), cfg.Backlog),
	}
}

// Add registers fn to run every frame in phase p, after the hooks already
// registered there.
func (l *Loop) Add(p Phase, name string, fn func(dt float64)) {
	l.hooks[p] = append(l.hooks[p], hook{name: name, fn: fn})
}

// AtFrameEnd registers fn to run after the scheduled tasks of every
// frame. Sinks that batch writes flush here.
func (l *Loop) AtFrameEnd(name string, fn func(dt float64)) {
	l.ends = append(l.ends, hook{name: name, fn: fn})
}

// AddObserver installs a frame observer.
func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

// Scheduler returns the loop's task scheduler.
func (l *Loop) Scheduler() *Scheduler { return l.sched }

// Rate returns the frame period.
func (l *Loop) Rate() time.Duration { return l.cfg.Rate }

// Frames returns the number of completed frames.
func (l *Loop) Frames() uint64 { return l.frames }

// Post queues fn to run at the start of the next frame. It never blocks;
// false means the queue was full and fn was dropped.
func (l *Loop) Post(fn func()) bool {
	select {
	case l.posted <- fn:
		return true
	default:
		l.dropped++
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case l.posted <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Step runs one frame of dt seconds: posted commands, the Update, Late
// and Output phases, scheduled tasks, then frame-end hooks.
func (l *Loop) Step(dt float64) {
	start := time.Now()
	l.drain()
	for p := Phase(0); p < numPhases; p++ {
		for _, h := range l.hooks[p] {
			h.fn(dt)
		}
	}
	l.sched.Advance(dt)
	for _, h := range l.ends {
		h.fn(dt)
	}
	l.frames++
	took := time.Since(start)
	for _, o := range l.observers {
		o.FrameDone(dt, took)
	}
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.posted:
			fn()
		default:
			return
		}
	}
}

// Run ticks the loop at the configured rate until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Rate)
	defer ticker.Stop()

	l.logger.Info("frame loop started", "hz", 1/l.cfg.Rate.Seconds())
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("frame loop stopped", "frames", l.frames, "dropped_commands", l.dropped)
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := min(now.Sub(last), l.cfg.MaxDelta)
			last = now
			l.Step(elapsed.Seconds())
			if l.frames%3600 == 0 {
				l.logger.Debug("frame loop heartbeat", "frames", l.frames, "tasks", l.sched.Pending())
			}
		}
	}
}
