// Package driver holds the machinery shared by the channel drivers:
// threshold-gated exclusive state, change notification and preset scaling.
package driver

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/expression"
)

// Exclusive is a set of intensities where at most one member of the group
// is non-zero at a time. Members marked independent blend on top of the
// group and are never zeroed by it.
//
// Callers write requests; Evaluate applies at most one request per call:
// the first member, in declaration order, whose request differs from the
// current value by more than the threshold. After a hit every pending
// request is overwritten with the current values.
type Exclusive struct {
	cats        []expression.Category
	index       map[expression.Category]int
	independent map[int]bool
	threshold   float64

	current []float64
	request []float64
	active  int
}

// NewExclusive creates a group over cats with the given change threshold.
func NewExclusive(threshold float64, cats ...expression.Category) *Exclusive {
	e := &Exclusive{
		cats:        append([]expression.Category(nil), cats...),
		index:       make(map[expression.Category]int, len(cats)),
		independent: make(map[int]bool),
		threshold:   threshold,
		current:     make([]float64, len(cats)),
		request:     make([]float64, len(cats)),
		active:      -1,
	}
	for i, c := range cats {
		e.index[c] = i
	}
	return e
}

// Independent marks c as blending outside the exclusivity rule.
func (e *Exclusive) Independent(c expression.Category) *Exclusive {
	if i, ok := e.index[c]; ok {
		e.independent[i] = true
	}
	return e
}

// Threshold returns the minimum change that triggers an update.
func (e *Exclusive) Threshold() float64 { return e.threshold }

// Categories returns the members in evaluation order.
func (e *Exclusive) Categories() []expression.Category {
	return append([]expression.Category(nil), e.cats...)
}

// Request sets the desired intensity of c, clamped to [0,100].
func (e *Exclusive) Request(c expression.Category, v float64) error {
	i, ok := e.index[c]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInGroup, c)
	}
	e.request[i] = blendshape.ClampWeight(v)
	return nil
}

// Requested returns the pending request of c.
func (e *Exclusive) Requested(c expression.Category) float64 {
	if i, ok := e.index[c]; ok {
		return e.request[i]
	}
	return 0
}

// Current returns the applied intensity of c.
func (e *Exclusive) Current(c expression.Category) float64 {
	if i, ok := e.index[c]; ok {
		return e.current[i]
	}
	return 0
}

// Active returns the exclusive member that currently holds a non-zero
// intensity, if any.
func (e *Exclusive) Active() (expression.Category, float64, bool) {
	if e.active < 0 || e.current[e.active] == 0 {
		return 0, 0, false
	}
	return e.cats[e.active], e.current[e.active], true
}

// Evaluate applies the first request that moved past the threshold and
// reports which member changed.
func (e *Exclusive) Evaluate() (expression.Category, bool) {
	for i := range e.cats {
		if math.Abs(e.request[i]-e.current[i]) <= e.threshold {
			continue
		}
		e.current[i] = e.request[i]
		if !e.independent[i] {
			e.active = i
			for j := range e.current {
				if j != i && !e.independent[j] {
					e.current[j] = 0
				}
			}
		}
		copy(e.request, e.current)
		return e.cats[i], true
	}
	return 0, false
}

// Reset zeroes requests and current values.
func (e *Exclusive) Reset() {
	for i := range e.current {
		e.current[i] = 0
		e.request[i] = 0
	}
	e.active = -1
}
