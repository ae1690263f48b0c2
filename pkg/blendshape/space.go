// Package blendshape describes a character's deformation channels and the
// vectors of weights written to them.
package blendshape

import (
	"fmt"
	"strings"
)

// Part is one deformable mesh of a character with its ordered channels.
type Part struct {
	Name     string   `json:"name" yaml:"name"`
	Channels []string `json:"channels" yaml:"channels"`
}

// Space is the ordered set of channels of a character, aggregated across
// its mesh parts. The channel count is fixed once built.
type Space struct {
	parts   []Part
	offsets []int
	names   []string
	index   map[string]int
}

// NewSpace aggregates parts in order. Channel names are qualified as
// "part.channel" and may also be looked up unqualified when unambiguous.
func NewSpace(parts ...Part) (*Space, error) {
	s := &Space{index: make(map[string]int)}
	ambiguous := make(map[string]bool)

	for _, p := range parts {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: part without a name", ErrInvalidSpace)
		}
		s.offsets = append(s.offsets, len(s.names))
		s.parts = append(s.parts, Part{Name: p.Name, Channels: append([]string(nil), p.Channels...)})
		for _, ch := range p.Channels {
			qualified := p.Name + "." + ch
			if _, dup := s.index[qualified]; dup {
				return nil, fmt.Errorf("%w: duplicate channel %q", ErrInvalidSpace, qualified)
			}
			i := len(s.names)
			s.names = append(s.names, qualified)
			s.index[qualified] = i
			if _, seen := s.index[ch]; seen || ambiguous[ch] {
				delete(s.index, ch)
				ambiguous[ch] = true
				continue
			}
			s.index[ch] = i
		}
	}
	return s, nil
}

// MustSpace is NewSpace that panics on error. Meant for static rigs.
func MustSpace(parts ...Part) *Space {
	s, err := NewSpace(parts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Total returns the number of channels across all parts.
func (s *Space) Total() int { return len(s.names) }

// Parts returns a copy of the mesh parts.
func (s *Space) Parts() []Part {
	out := make([]Part, len(s.parts))
	copy(out, s.parts)
	return out
}

// Name returns the qualified name of channel i.
func (s *Space) Name(i int) string {
	if i < 0 || i >= len(s.names) {
		return ""
	}
	return s.names[i]
}

// Names returns all qualified channel names in order.
func (s *Space) Names() []string {
	return append([]string(nil), s.names...)
}

// Index resolves a qualified or unambiguous channel name. Matching is
// case-insensitive as a fallback.
func (s *Space) Index(name string) (int, bool) {
	if i, ok := s.index[name]; ok {
		return i, true
	}
	for k, i := range s.index {
		if strings.EqualFold(k, name) {
			return i, true
		}
	}
	return 0, false
}

// Locate maps a global channel index to its part and the local index
// inside that part.
func (s *Space) Locate(i int) (part string, local int, ok bool) {
	if i < 0 || i >= len(s.names) {
		return "", 0, false
	}
	for p := len(s.offsets) - 1; p >= 0; p-- {
		if i >= s.offsets[p] {
			return s.parts[p].Name, i - s.offsets[p], true
		}
	}
	return "", 0, false
}

// Zero returns an all-zero vector sized for this space.
func (s *Space) Zero() Vector { return make(Vector, len(s.names)) }
