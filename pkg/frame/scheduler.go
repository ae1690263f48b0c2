package frame

import (
	"context"
	"math"
)

// timeEpsilon absorbs float drift when summing fixed frame steps.
const timeEpsilon = 1e-9

// Handle identifies a scheduled task.
type Handle struct {
	task *task
}

// Cancel stops the task. It never runs again, even later in the current
// frame.
func (h Handle) Cancel() {
	if h.task != nil {
		h.task.done = true
	}
}

// Active reports whether the task is still scheduled.
func (h Handle) Active() bool {
	return h.task != nil && !h.task.done && h.task.ctx.Err() == nil
}

type task struct {
	ctx     context.Context
	name    string
	every   func(dt float64) bool
	after   func()
	delay   float64
	elapsed float64
	done    bool
}

// Scheduler runs per-frame and delayed tasks on the frame loop. Tasks are
// bound to a context; cancelling it removes every task created under it.
// Not safe for concurrent use; only the loop touches it.
type Scheduler struct {
	now   float64
	tasks []*task
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the simulated time in seconds.
func (s *Scheduler) Now() float64 { return s.now }

// Every runs fn once per frame until it returns false or ctx is cancelled.
func (s *Scheduler) Every(ctx context.Context, name string, fn func(dt float64) bool) Handle {
	t := &task{ctx: ctx, name: name, every: fn}
	s.tasks = append(s.tasks, t)
	return Handle{task: t}
}

// After runs fn once, delay seconds from the start of the current frame.
func (s *Scheduler) After(ctx context.Context, name string, delay float64, fn func()) Handle {
	t := &task{ctx: ctx, name: name, after: fn, delay: math.Max(0, delay)}
	s.tasks = append(s.tasks, t)
	return Handle{task: t}
}

// Pending returns the number of live tasks.
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.done && t.ctx.Err() == nil {
			n++
		}
	}
	return n
}

// Names lists live task names, in scheduling order.
func (s *Scheduler) Names() []string {
	var out []string
	for _, t := range s.tasks {
		if !t.done && t.ctx.Err() == nil {
			out = append(out, t.name)
		}
	}
	return out
}

// Advance moves time forward by dt and runs due tasks. Tasks scheduled
// while advancing first run on the next call.
func (s *Scheduler) Advance(dt float64) {
	s.now += dt
	n := len(s.tasks)
	for i := 0; i < n; i++ {
		t := s.tasks[i]
		if t.done || t.ctx.Err() != nil {
			t.done = true
			continue
		}
		if t.every != nil {
			if !t.every(dt) {
				t.done = true
			}
			continue
		}
		t.elapsed += dt
		if t.elapsed+timeEpsilon >= t.delay {
			t.done = true
			t.after()
		}
	}
	s.compact()
}

func (s *Scheduler) compact() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.done && t.ctx.Err() == nil {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}

// Group is a cancellable set of tasks, typically owned by one behavior.
// Restart cancels the previous tasks and hands out a fresh context.
type Group struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGroup creates a group under parent.
func NewGroup(parent context.Context) *Group {
	g := &Group{parent: parent}
	g.Restart()
	return g
}

// Context returns the current token.
func (g *Group) Context() context.Context { return g.ctx }

// Restart cancels the current token and returns a new one.
func (g *Group) Restart() context.Context {
	if g.cancel != nil {
		g.cancel()
	}
	g.ctx, g.cancel = context.WithCancel(g.parent)
	return g.ctx
}

// Cancel stops every task in the group.
func (g *Group) Cancel() {
	if g.cancel != nil {
		g.cancel()
	}
}
