package backtest

import (
	"github.com/predixlabs/crossarb/pkg/types"
)

// SlippageModel selects how much execution cost the replay assumes on top
// of quoted prices.
type SlippageModel string

const (
	// ModelConservative assumes thin books and slow fills.
	ModelConservative SlippageModel = "conservative"

	// ModelRealistic tracks typical observed fill quality.
	ModelRealistic SlippageModel = "realistic"

	// ModelOptimistic assumes near-touch fills.
	ModelOptimistic SlippageModel = "optimistic"
)

// curvePoint anchors a penalty curve at one depth fill. fill is the share
// of quoted book depth a trade consumes; penalty is the execution cost as
// a fraction of notional.
type curvePoint struct {
	fill    float64
	penalty float64
}

// Each model is a piecewise-linear penalty curve over depth consumption.
// Eating deeper into the book costs more; the models disagree on how
// steeply.
var slippageCurves = map[SlippageModel][]curvePoint{
	ModelConservative: {{0, 0.010}, {0.5, 0.020}, {1, 0.035}},
	ModelRealistic:    {{0, 0.005}, {0.5, 0.010}, {1, 0.018}},
	ModelOptimistic:   {{0, 0.002}, {0.5, 0.004}, {1, 0.009}},
}

// Valid reports whether the model is known.
func (m SlippageModel) Valid() bool {
	_, ok := slippageCurves[m]
	return ok
}

// penalty interpolates the model's curve at the given depth fill. Fills
// beyond the quoted book clamp to the deepest point.
func (m SlippageModel) penalty(fill float64) float64 {
	curve := slippageCurves[m]
	if fill <= curve[0].fill {
		return curve[0].penalty
	}
	last := curve[len(curve)-1]
	if fill >= last.fill {
		return last.penalty
	}
	for i := 1; i < len(curve); i++ {
		if fill > curve[i].fill {
			continue
		}
		lo, hi := curve[i-1], curve[i]
		frac := (fill - lo.fill) / (hi.fill - lo.fill)
		return lo.penalty + frac*(hi.penalty-lo.penalty)
	}
	return last.penalty
}

// validateModel normalizes an empty model to realistic.
func validateModel(m SlippageModel) (SlippageModel, error) {
	if m == "" {
		return ModelRealistic, nil
	}
	if !m.Valid() {
		return "", &types.ConfigurationError{
			Setting: "SlippageModel",
			Reason:  "must be conservative, realistic, or optimistic",
		}
	}
	return m, nil
}
