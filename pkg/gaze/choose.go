package gaze

import "math/rand/v2"

// Choose picks the first candidate whose cumulative share of the total
// weight, scaled to [0,100], reaches draw. It reports false when the total
// weight is not positive.
func Choose(weights []float64, draw int) (int, bool) {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1, false
	}

	var cum float64
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		cum += w / total * 100
		if cum >= float64(draw) {
			return i, true
		}
	}
	// Rounding may leave the final threshold just under 100.
	return last, true
}

// Roll draws an integer in [1,100] from rnd and chooses with it.
func Roll(weights []float64, rnd *rand.Rand) (int, bool) {
	return Choose(weights, rnd.IntN(100)+1)
}

func uniform(rnd *rand.Rand, lo, hi float64) float64 {
	return lo + rnd.Float64()*(hi-lo)
}
