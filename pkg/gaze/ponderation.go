package gaze

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-face/pkg/interest"
)

// SnapshotInterval is how often candidate positions are recorded for
// motion detection, in seconds.
const SnapshotInterval = 0.25

// Sound and movement factors are clamped to this range.
const (
	minFactor = 3.0
	maxFactor = 10.0
)

// DistanceWeight scores a candidate at distance d: closer is heavier.
func DistanceWeight(prior, d float64) float64 {
	if d <= 0 {
		return 100
	}
	return clamp(math.RoundToEven(prior+100/d), 0, 100)
}

// SoundWeight boosts w for a playing emitter at distance d.
func SoundWeight(w, d, volume float64) float64 {
	inv := math.Inf(1)
	if d > 0 {
		inv = 1 / d
	}
	f := clamp(inv*volume*10, minFactor, maxFactor)
	if math.IsNaN(f) {
		f = minFactor
	}
	return math.RoundToEven(w * f)
}

// MovementWeight boosts w for a candidate that moved delta metres since
// the last snapshot.
func MovementWeight(w, delta float64) float64 {
	return math.RoundToEven(w * clamp(delta*100, minFactor, maxFactor))
}

// Ponderation scores candidates by distance, sound and motion. It keeps a
// position snapshot refreshed every SnapshotInterval.
type Ponderation struct {
	count    int
	emitters map[int]interest.Emitter

	snapshot []mgl64.Vec3
	since    float64
	weights  []float64
}

// NewPonderation creates an empty ponderation state.
func NewPonderation() *Ponderation {
	return &Ponderation{count: -1}
}

// Update weighs entries as seen from origin and returns one weight per
// entry. The slice is reused across calls.
func (p *Ponderation) Update(origin mgl64.Vec3, entries []interest.Entry, dt float64) []float64 {
	if len(entries) != p.count {
		p.reset(entries)
	}

	p.weights = p.weights[:0]
	for i, e := range entries {
		pos := e.Candidate.Position()
		d := pos.Sub(origin).Len()
		w := DistanceWeight(0, d)

		if em, ok := p.emitters[i]; ok && em.Playing() {
			w = SoundWeight(w, d, em.Volume())
		}
		if p.snapshot != nil {
			if delta := pos.Sub(p.snapshot[i]).Len(); delta > 0 {
				w = MovementWeight(w, delta)
			}
		}
		p.weights = append(p.weights, w)
	}

	p.since += dt
	if p.since+1e-9 >= SnapshotInterval {
		p.since = 0
		p.record(entries)
	}
	return p.weights
}

// Weights returns a copy of the last computed weights.
func (p *Ponderation) Weights() []float64 {
	return append([]float64(nil), p.weights...)
}

// Reset forgets the snapshot and emitter lookup.
func (p *Ponderation) Reset() {
	p.count = -1
	p.emitters = nil
	p.snapshot = nil
	p.since = 0
	p.weights = p.weights[:0]
}

func (p *Ponderation) reset(entries []interest.Entry) {
	p.count = len(entries)
	p.snapshot = nil
	p.since = 0
	p.emitters = make(map[int]interest.Emitter)
	for i, e := range entries {
		if em, ok := interest.EmitterOf(e.Candidate); ok {
			p.emitters[i] = em
		}
	}
}

func (p *Ponderation) record(entries []interest.Entry) {
	if p.snapshot == nil {
		p.snapshot = make([]mgl64.Vec3, len(entries))
	}
	for i, e := range entries {
		p.snapshot[i] = e.Candidate.Position()
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
