package interest

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Volume is a region in the anchor's local frame.
type Volume interface {
	Contains(local mgl64.Vec3) bool
}

// Sphere is a ball around the anchor.
type Sphere struct {
	Radius float64
}

// Contains reports whether p lies inside the sphere.
func (s Sphere) Contains(p mgl64.Vec3) bool {
	return p.Len() <= s.Radius
}

// Cone is a view cone along the anchor's +Z axis.
type Cone struct {
	// HalfAngle in radians.
	HalfAngle float64
	Range     float64
}

// Contains reports whether p lies inside the cone.
func (c Cone) Contains(p mgl64.Vec3) bool {
	d := p.Len()
	if d == 0 {
		return true
	}
	if d > c.Range || p.Z() <= 0 {
		return false
	}
	return math.Acos(math.Min(1, p.Z()/d)) <= c.HalfAngle
}

// Anchor places a volume in the world.
type Anchor interface {
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
}

// Scanner turns a list of scene objects into enter and exit events on a
// field by testing them against a volume attached to an anchor.
type Scanner struct {
	field  *Field
	anchor Anchor
	volume Volume
	inside map[Candidate]bool
}

// NewScanner creates a scanner feeding field.
func NewScanner(field *Field, anchor Anchor, volume Volume) *Scanner {
	return &Scanner{field: field, anchor: anchor, volume: volume, inside: make(map[Candidate]bool)}
}

// Configure swaps the anchor and volume. Containment is re-evaluated on
// the next Scan.
func (s *Scanner) Configure(anchor Anchor, volume Volume) {
	s.anchor = anchor
	s.volume = volume
}

// Volume returns the active volume.
func (s *Scanner) Volume() Volume { return s.volume }

// Scan tests every object and reports transitions to the field.
func (s *Scanner) Scan(objects []Candidate) {
	if s.anchor == nil || s.volume == nil {
		return
	}
	origin := s.anchor.Position()
	inv := s.anchor.Rotation().Inverse()

	seen := make(map[Candidate]bool, len(objects))
	for _, o := range objects {
		seen[o] = true
		in := o.Active() && s.volume.Contains(inv.Rotate(o.Position().Sub(origin)))
		switch {
		case in && !s.inside[o]:
			s.inside[o] = true
			s.field.Enter(o)
		case !in && s.inside[o]:
			delete(s.inside, o)
			s.field.ExitCandidate(o)
		}
	}
	for o := range s.inside {
		if !seen[o] {
			delete(s.inside, o)
			s.field.ExitCandidate(o)
		}
	}
}
