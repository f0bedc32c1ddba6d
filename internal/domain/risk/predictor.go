package risk

import (
	"context"

	"github.com/okian/careerpulse/internal/domain/model"
)

// Input is what a predictor sees. HasVelocity distinguishes "no velocity
// signal" from a real zero, which selects a confidence-only model.
type Input struct {
	AvgConfidence  float64
	CommitVelocity float64
	HasVelocity    bool
}

// Prediction is the ML half of a forecast.
type Prediction struct {
	Risk         int
	ModelVersion string
	Mode         model.PredictionMode
}

// Predictor scores an input. Implementations must not fail: when their
// model is unavailable they return a fallback prediction instead.
type Predictor interface {
	Predict(ctx context.Context, in Input) Prediction
}

// HeuristicVersion labels predictions made without a model.
const HeuristicVersion = "heuristic"

// HeuristicPredictor is the inverse-confidence fallback.
type HeuristicPredictor struct{}

// Predict returns clamp(int(100 - avg_confidence)).
func (HeuristicPredictor) Predict(_ context.Context, in Input) Prediction {
	return Heuristic(in.AvgConfidence)
}

// Heuristic is the fallback prediction for a confidence average.
func Heuristic(avgConfidence float64) Prediction {
	return Prediction{
		Risk:         model.ClampScore(int(100 - avgConfidence)),
		ModelVersion: HeuristicVersion,
		Mode:         model.ModeFallback,
	}
}
