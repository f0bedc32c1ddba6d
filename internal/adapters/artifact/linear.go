package artifact

// linear scores x·w + b over named features.
type linear struct {
	features  []string
	intercept float64
	weights   map[string]float64
	baseline  map[string]float64
}

func newLinear(s *Spec) *linear {
	return &linear{features: s.Features, intercept: s.Intercept, weights: s.Weights, baseline: s.Baseline}
}

func (l *linear) score(x map[string]float64) float64 {
	y := l.intercept
	for _, f := range l.features {
		y += l.weights[f] * x[f]
	}
	return y
}

// contributions are exact Shapley values for a linear model with
// independent features: w·(x - baseline).
func (l *linear) contributions(x map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(l.features))
	for _, f := range l.features {
		out[f] = l.weights[f] * (x[f] - l.baseline[f])
	}
	return out
}
