package face

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/driver"
	"github.com/teslashibe/go-face/pkg/frame"
)

// BlendTime is how long the sink takes to reach a new target, in seconds.
const BlendTime = 0.05

const timeEpsilon = 1e-9

// Channel identifies a driver feeding the arbiter, in priority order.
type Channel int

const (
	ChannelLipSync Channel = iota
	ChannelEmotion
	ChannelGaze

	numChannels
)

var channelNames = [numChannels]string{"lipsync", "emotion", "gaze"}

func (c Channel) String() string {
	if c < 0 || c >= numChannels {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Channels lists the inputs from highest to lowest priority.
func Channels() []Channel {
	return []Channel{ChannelLipSync, ChannelEmotion, ChannelGaze}
}

// Prioritize writes into dst, per channel index, the first non-zero value
// among lip, emotion and gaze. dst is resized to n and returned.
func Prioritize(dst blendshape.Vector, n int, lip, emotion, gaze blendshape.Vector) blendshape.Vector {
	if cap(dst) < n {
		dst = make(blendshape.Vector, n)
	}
	dst = dst[:n]
	for i := range dst {
		switch {
		case at(lip, i) != 0:
			dst[i] = lip[i]
		case at(emotion, i) != 0:
			dst[i] = emotion[i]
		default:
			dst[i] = at(gaze, i)
		}
	}
	return dst
}

func at(v blendshape.Vector, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// Arbiter merges the driver outputs and eases the sink toward the result.
// Driver notifications land in a per-channel inbox where the latest vector
// wins; Step drains it once per frame.
type Arbiter struct {
	logger *slog.Logger
	sink   blendshape.Sink
	sched  *frame.Scheduler
	group  *frame.Group
	total  int

	inbox   [numChannels]blendshape.Vector
	pending [numChannels]bool
	inputs  [numChannels]blendshape.Vector
	target  blendshape.Vector
	scratch blendshape.Vector

	enabled  bool
	blending frame.Handle
	blends   uint64
	onBlend  func()
}

// NewArbiter creates an arbiter writing total channels into sink.
func NewArbiter(total int, sink blendshape.Sink, sched *frame.Scheduler, logger *slog.Logger) *Arbiter {
	a := &Arbiter{
		logger:  logger,
		sink:    sink,
		sched:   sched,
		group:   frame.NewGroup(context.Background()),
		total:   total,
		target:  make(blendshape.Vector, total),
		enabled: true,
	}
	for i := range a.inputs {
		a.inputs[i] = make(blendshape.Vector, total)
	}
	return a
}

// Listener returns a driver listener that posts into ch's inbox.
func (a *Arbiter) Listener(ch Channel) driver.Listener {
	return func(v blendshape.Vector) { a.Submit(ch, v) }
}

// Submit stores v as the latest vector of ch.
func (a *Arbiter) Submit(ch Channel, v blendshape.Vector) {
	a.inbox[ch] = v
	a.pending[ch] = true
}

// Input returns the last drained vector of ch.
func (a *Arbiter) Input(ch Channel) blendshape.Vector { return a.inputs[ch].Clone() }

// Target returns the prioritized vector the sink is moving toward.
func (a *Arbiter) Target() blendshape.Vector { return a.target.Clone() }

// Blending reports whether an interpolation is in flight.
func (a *Arbiter) Blending() bool { return a.blending.Active() }

// Blends returns how many interpolations were started.
func (a *Arbiter) Blends() uint64 { return a.blends }

// OnBlend is called whenever an interpolation starts.
func (a *Arbiter) OnBlend(fn func()) { a.onBlend = fn }

// Enabled reports whether Step does any work.
func (a *Arbiter) Enabled() bool { return a.enabled }

// Step drains the inbox, prioritizes and, when the result changed,
// restarts the interpolation.
func (a *Arbiter) Step(float64) {
	if !a.enabled {
		return
	}
	for ch := range a.inbox {
		if !a.pending[ch] {
			continue
		}
		a.inputs[ch] = a.inbox[ch].Resize(a.total)
		a.inbox[ch], a.pending[ch] = nil, false
	}

	a.scratch = Prioritize(a.scratch, a.total,
		a.inputs[ChannelLipSync], a.inputs[ChannelEmotion], a.inputs[ChannelGaze])
	if a.scratch.Equal(a.target) {
		return
	}
	copy(a.target, a.scratch)
	a.blend(a.target.Clone())
}

func (a *Arbiter) blend(to blendshape.Vector) {
	ctx := a.group.Restart()
	from := make(blendshape.Vector, a.total)
	for i := range from {
		from[i] = a.sink.ChannelWeight(i)
	}

	a.blends++
	if a.onBlend != nil {
		a.onBlend()
	}

	var elapsed float64
	a.blending = a.sched.Every(ctx, "face.blend", func(dt float64) bool {
		elapsed += dt
		t := math.Min(1, elapsed/BlendTime)
		if elapsed+timeEpsilon >= BlendTime {
			t = 1
		}
		for i := range to {
			w := blendshape.Lerp(from[i], to[i], t)
			if a.sink.ChannelWeight(i) != w {
				a.sink.SetChannelWeight(i, w)
			}
		}
		return t < 1
	})
}

// Disable cancels the interpolation and zeroes every channel at once.
func (a *Arbiter) Disable() {
	if !a.enabled {
		return
	}
	a.enabled = false
	a.group.Cancel()
	for i := 0; i < a.total; i++ {
		a.sink.SetChannelWeight(i, 0)
	}
	clear(a.target)
	for ch := range a.inputs {
		clear(a.inputs[ch])
		a.inbox[ch], a.pending[ch] = nil, false
	}
	a.logger.Info("arbiter disabled, sink reset")
}

// Enable resumes merging.
func (a *Arbiter) Enable() { a.enabled = true }
