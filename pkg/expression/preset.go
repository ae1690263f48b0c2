package expression

import (
	"fmt"
	"sort"

	"github.com/teslashibe/go-face/pkg/blendshape"
)

// Store supplies the maximum channel weights of each category. Returned
// slices always have one entry per channel of the character.
type Store interface {
	MaxValues(c Category) ([]float64, error)
}

// Issue records a value that was rejected while loading a preset.
type Issue struct {
	Category Category `json:"category"`
	Channel  string   `json:"channel"`
	Value    float64  `json:"value"`
	Reason   string   `json:"reason"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s/%s: %g (%s)", i.Category, i.Channel, i.Value, i.Reason)
}

// Preset is an in-memory Store for one character.
type Preset struct {
	Name        string
	Description string

	total  int
	values map[Category]blendshape.Vector
	issues []Issue
}

// NewPreset creates an empty preset sized for total channels.
func NewPreset(name string, total int) *Preset {
	return &Preset{
		Name:   name,
		total:  total,
		values: make(map[Category]blendshape.Vector),
	}
}

// Total returns the channel count every vector is normalized to.
func (p *Preset) Total() int { return p.total }

// Set stores raw as the max vector of c after normalization.
func (p *Preset) Set(c Category, raw []float64) {
	norm, rejected := normalize(raw, p.total)
	for _, idx := range rejected {
		p.issues = append(p.issues, Issue{
			Category: c,
			Channel:  fmt.Sprintf("#%d", idx),
			Value:    raw[idx],
			Reason:   "outside [0,100], replaced by 0",
		})
	}
	p.values[c] = norm
}

// MaxValues returns a copy of the max vector of c.
func (p *Preset) MaxValues(c Category) ([]float64, error) {
	if p == nil {
		return nil, ErrConfigurationMissing
	}
	v, ok := p.values[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigurationMissing, c)
	}
	return v.Clone(), nil
}

// Has reports whether c is configured.
func (p *Preset) Has(c Category) bool {
	_, ok := p.values[c]
	return ok
}

// Categories returns the configured categories in canonical order.
func (p *Preset) Categories() []Category {
	out := make([]Category, 0, len(p.values))
	for c := range p.values {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Issues returns every value rejected while the preset was built.
func (p *Preset) Issues() []Issue {
	return append([]Issue(nil), p.issues...)
}

// Normalize maps raw onto exactly total channels. Values outside [0,100]
// become 0; missing trailing values become 0; extra values are dropped.
func Normalize(raw []float64, total int) []float64 {
	v, _ := normalize(raw, total)
	return v
}

func normalize(raw []float64, total int) (blendshape.Vector, []int) {
	out := make(blendshape.Vector, total)
	var rejected []int
	for i := 0; i < total && i < len(raw); i++ {
		if raw[i] >= 0 && raw[i] <= blendshape.MaxWeight {
			out[i] = raw[i]
			continue
		}
		rejected = append(rejected, i)
	}
	return out, rejected
}

// MaxValuesOrZero fetches c from s. A nil store or a missing category
// yields a zero vector and the error explaining why.
func MaxValuesOrZero(s Store, c Category, total int) ([]float64, error) {
	if s == nil {
		return make([]float64, total), ErrConfigurationMissing
	}
	v, err := s.MaxValues(c)
	if err != nil {
		return make([]float64, total), err
	}
	return Normalize(v, total), nil
}
