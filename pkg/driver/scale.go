package driver

import (
	"errors"
	"log/slog"

	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/expression"
)

// Scale writes clamp(intensity*maxv[i]/100) into out.
func Scale(out blendshape.Vector, intensity float64, maxv []float64) {
	for i := range out {
		var m float64
		if i < len(maxv) {
			m = maxv[i]
		}
		out[i] = blendshape.ClampWeight(intensity * m / 100)
	}
}

// AddScaled adds intensity*maxv[i]/100 to out, clamping each channel.
func AddScaled(out blendshape.Vector, intensity float64, maxv []float64) {
	for i := range out {
		if i >= len(maxv) {
			break
		}
		out[i] = blendshape.ClampWeight(out[i] + intensity*maxv[i]/100)
	}
}

// MaxTable caches the max vectors of a driver's categories.
type MaxTable map[expression.Category]blendshape.Vector

// LoadTable reads cats from store, sized to total channels. Missing
// categories get zero vectors; the returned error lists them.
func LoadTable(store expression.Store, total int, cats ...expression.Category) (MaxTable, error) {
	t := make(MaxTable, len(cats))
	var errs []error
	for _, c := range cats {
		v, err := expression.MaxValuesOrZero(store, c, total)
		if err != nil {
			errs = append(errs, err)
		}
		t[c] = v
	}
	return t, errors.Join(errs...)
}

// Get returns the max vector of c, or nil.
func (t MaxTable) Get(c expression.Category) blendshape.Vector { return t[c] }

// LogMissing reports a LoadTable error once on l.
func LogMissing(l *slog.Logger, err error) {
	if err != nil {
		l.Warn("expression preset incomplete, affected channels stay at zero", "error", err)
	}
}
