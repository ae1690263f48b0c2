package blendshape

import "math"

// MaxWeight is the upper bound of every channel weight.
const MaxWeight = 100.0

// Vector holds one weight per channel, each in [0, MaxWeight].
type Vector []float64

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Equal reports whether v and o hold the same values. Length mismatch is
// inequality.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether every channel is zero.
func (v Vector) IsZero() bool {
	for _, w := range v {
		if w != 0 {
			return false
		}
	}
	return true
}

// Clamp limits every channel to [0, MaxWeight] in place and returns v.
func (v Vector) Clamp() Vector {
	for i, w := range v {
		v[i] = ClampWeight(w)
	}
	return v
}

// Resize returns v truncated or zero-padded to n channels.
func (v Vector) Resize(n int) Vector {
	out := make(Vector, n)
	copy(out, v)
	return out
}

// ClampWeight limits a single weight to [0, MaxWeight]. NaN becomes 0.
func ClampWeight(w float64) float64 {
	if math.IsNaN(w) {
		return 0
	}
	return math.Max(0, math.Min(MaxWeight, w))
}

// Lerp interpolates between a and b, clamping t to [0, 1].
func Lerp(a, b, t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	return a + (b-a)*t
}
