package face

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/frame"
)

const dt = 1.0 / 60

func TestPrioritize(t *testing.T) {
	lip := blendshape.Vector{10, 0, 0, 0}
	emo := blendshape.Vector{20, 20, 0, 0}
	gz := blendshape.Vector{30, 30, 30}

	got := Prioritize(nil, 4, lip, emo, gz)
	assert.Equal(t, blendshape.Vector{10, 20, 30, 0}, got)

	got = Prioritize(got, 2, nil, nil, gz)
	assert.Equal(t, blendshape.Vector{30, 30}, got)
}

type arbiterRig struct {
	sink  *blendshape.Memory
	sched *frame.Scheduler
	arb   *Arbiter
}

func newArbiterRig(total int) *arbiterRig {
	r := &arbiterRig{sink: blendshape.NewMemory(total), sched: frame.NewScheduler()}
	r.arb = NewArbiter(total, r.sink, r.sched, log.Discard())
	return r
}

// frame runs the arbiter phase followed by scheduled tasks.
func (r *arbiterRig) frame() {
	r.arb.Step(dt)
	r.sched.Advance(dt)
}

func assertWeights(t *testing.T, want blendshape.Vector, got blendshape.Vector) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "channel %d", i)
	}
}

func TestArbiterInterpolatesOverBlendTime(t *testing.T) {
	r := newArbiterRig(3)
	r.arb.Submit(ChannelEmotion, blendshape.Vector{0, 60, 90})

	r.frame()
	assertWeights(t, blendshape.Vector{0, 20, 30}, r.sink.Weights())
	assert.True(t, r.arb.Blending())

	r.frame()
	r.frame()
	assertWeights(t, blendshape.Vector{0, 60, 90}, r.sink.Weights())
	assert.False(t, r.arb.Blending())
	assert.Equal(t, uint64(1), r.arb.Blends())

	// Channel 0 never differed, so only two channels were written per frame.
	assert.Equal(t, uint64(6), r.sink.Writes())
}

func TestArbiterPriorityWins(t *testing.T) {
	r := newArbiterRig(2)
	r.arb.Submit(ChannelGaze, blendshape.Vector{30, 30})
	r.arb.Submit(ChannelEmotion, blendshape.Vector{20, 20})
	r.arb.Submit(ChannelLipSync, blendshape.Vector{10, 0})
	for i := 0; i < 4; i++ {
		r.frame()
	}
	assertWeights(t, blendshape.Vector{10, 20}, r.sink.Weights())
	assertWeights(t, blendshape.Vector{10, 20}, r.arb.Target())
}

func TestArbiterRetargetsFromAppliedValues(t *testing.T) {
	r := newArbiterRig(2)
	r.arb.Submit(ChannelEmotion, blendshape.Vector{0, 60})
	r.frame()
	assertWeights(t, blendshape.Vector{0, 20}, r.sink.Weights())

	r.arb.Submit(ChannelLipSync, blendshape.Vector{30, 0})
	r.frame()
	assertWeights(t, blendshape.Vector{10, 20 + 40.0/3}, r.sink.Weights())
	assert.Equal(t, uint64(2), r.arb.Blends())
	assert.Equal(t, []string{"face.blend"}, r.sched.Names())
}

func TestArbiterLatestSubmissionWins(t *testing.T) {
	r := newArbiterRig(1)
	r.arb.Submit(ChannelEmotion, blendshape.Vector{80})
	r.arb.Submit(ChannelEmotion, blendshape.Vector{40})
	for i := 0; i < 3; i++ {
		r.frame()
	}
	assertWeights(t, blendshape.Vector{40}, r.sink.Weights())
	assert.Equal(t, uint64(1), r.arb.Blends())
}

func TestArbiterIgnoresUnchangedTarget(t *testing.T) {
	r := newArbiterRig(1)
	r.arb.Submit(ChannelGaze, blendshape.Vector{50})
	r.frame()
	r.arb.Submit(ChannelGaze, blendshape.Vector{50})
	r.frame()
	assert.Equal(t, uint64(1), r.arb.Blends())

	r.arb.Submit(ChannelGaze, blendshape.Vector{0})
	r.frame()
	assert.Equal(t, uint64(2), r.arb.Blends())
}

func TestArbiterDisableZeroesImmediately(t *testing.T) {
	r := newArbiterRig(2)
	r.arb.Submit(ChannelEmotion, blendshape.Vector{100, 100})
	r.frame()

	r.arb.Disable()
	assertWeights(t, blendshape.Vector{0, 0}, r.sink.Weights())
	assert.False(t, r.arb.Enabled())

	r.arb.Submit(ChannelEmotion, blendshape.Vector{100, 100})
	r.frame()
	r.frame()
	assertWeights(t, blendshape.Vector{0, 0}, r.sink.Weights())

	r.arb.Enable()
	r.arb.Submit(ChannelEmotion, blendshape.Vector{100, 100})
	for i := 0; i < 3; i++ {
		r.frame()
	}
	assertWeights(t, blendshape.Vector{100, 100}, r.sink.Weights())
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "lipsync", ChannelLipSync.String())
	assert.Equal(t, "gaze", ChannelGaze.String())
	assert.Equal(t, "channel(9)", Channel(9).String())
}
