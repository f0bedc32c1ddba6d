// Package features derives the model feature vector from signals and history.
package features

import (
	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/internal/domain/skill"
)

// Feature keys shared by predictors and explainers.
const (
	AvgConfidence  = "avg_confidence"
	CommitVelocity = "commit_velocity"
	SkillSlope     = "skill_slope"
)

// MarketTrends is the skill list a user's languages are compared against
// to find the market gap. Order matters: the first gap is the one suggested.
var MarketTrends = []string{"Rust", "Python", "Go", "TypeScript", "Kubernetes", "React", "AWS", "System Design"}

// Vector is the input to risk prediction and counterfactual explanation.
type Vector struct {
	AvgConfidence  float64  `json:"avg_confidence"`
	CommitVelocity int      `json:"commit_velocity"`
	SkillSlope     int      `json:"skill_slope"`
	MarketGap      []string `json:"market_gap"`
}

// Numeric returns the numeric features keyed by name.
func (v Vector) Numeric() map[string]float64 {
	return map[string]float64{
		AvgConfidence:  v.AvgConfidence,
		CommitVelocity: float64(v.CommitVelocity),
		SkillSlope:     float64(v.SkillSlope),
	}
}

// Compute builds a Vector. history is ordered newest first; the slope is the
// oldest risk minus the newest, so a falling risk gives a positive slope.
func Compute(signals model.RawSignals, conf model.SkillConfidence, history []model.RiskSnapshot) Vector {
	v := Vector{
		AvgConfidence:  skill.Average(conf),
		CommitVelocity: signals.CommitsLast30Days,
		MarketGap:      Gap(signals),
	}
	if len(history) > 0 {
		v.SkillSlope = history[len(history)-1].RiskScore - history[0].RiskScore
	}
	return v
}

// Gap lists MarketTrends entries absent from the harvested languages.
// Language names are compared exactly, as the API reports them.
func Gap(signals model.RawSignals) []string {
	out := make([]string, 0, len(MarketTrends))
	for _, s := range MarketTrends {
		if _, ok := signals.LanguageBytes[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
