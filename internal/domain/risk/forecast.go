// Package risk combines rule penalties with an injected predictor into a
// bounded career risk score.
package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/internal/domain/skill"
	"github.com/okian/careerpulse/pkg/logger"
	"github.com/okian/careerpulse/pkg/metrics"
)

// Rule thresholds and penalties.
const (
	lowConfidenceThreshold = 60
	lowActivityCommits     = 10
	lowConfidencePenalty   = 30
	lowActivityPenalty     = 30
	lowVelocityPenalty     = 20
)

// Reasons attached to the rule penalties.
const (
	ReasonLowConfidence = "Skill confidence trending low"
	ReasonLowActivity   = "Low activity: fewer than 10 commits in the last 30 days"
	ReasonLowVelocity   = "Commit velocity is Low"
)

var mitigations = map[string]string{
	ReasonLowConfidence: "Ship verifiable code in your focus skill to raise confidence",
	ReasonLowActivity:   "Commit small changes at least three times a week",
	ReasonLowVelocity:   "Pick one repository and push to it every week",
}

var summaries = map[model.RiskLevel]string{
	model.RiskHigh:   "High probability of stagnation/rejection within 6 months",
	model.RiskMedium: "Moderate risk: skills or activity trail market demand",
	model.RiskLow:    "Low risk: profile is aligned with market demand",
}

// Metrics are the activity inputs to the rule component.
type Metrics struct {
	CommitsLast30Days int
	Velocity          model.Velocity
	// VelocityKnown is false when activity could not be harvested at all.
	VelocityKnown bool
}

// MetricsFromSignals extracts Metrics from a harvest.
func MetricsFromSignals(s model.RawSignals) Metrics {
	v := s.Velocity
	if v == "" {
		v = model.VelocityFromCommits(s.CommitsLast30Days)
	}
	return Metrics{CommitsLast30Days: s.CommitsLast30Days, Velocity: v, VelocityKnown: true}
}

// Forecast is the engine output.
type Forecast struct {
	RiskScore          int                  `json:"risk_score"`
	RiskLevel          model.RiskLevel      `json:"risk_level"`
	Summary            string               `json:"summary"`
	Reasons            []string             `json:"reasons"`
	RiskFactor         string               `json:"risk_factor"`
	MitigationStrategy string               `json:"mitigation_strategy"`
	RuleRisk           int                  `json:"rule_risk"`
	MLRisk             int                  `json:"ml_risk"`
	ModelVersion       string               `json:"model_version"`
	Mode               model.PredictionMode `json:"mode"`
}

// Engine is stateless apart from its injected predictor.
type Engine struct {
	predictor Predictor
	logger    logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPredictor sets the ML predictor. nil keeps the heuristic.
func WithPredictor(p Predictor) Option {
	return func(e *Engine) {
		if p != nil {
			e.predictor = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine with the heuristic predictor by default.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		predictor: HeuristicPredictor{},
		logger:    logger.Get().Named("risk"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the rule score and the reasons behind it.
func Rules(avgConfidence float64, m Metrics) (int, []string) {
	score := 0
	reasons := make([]string, 0, 3)
	if avgConfidence < lowConfidenceThreshold {
		score += lowConfidencePenalty
		reasons = append(reasons, ReasonLowConfidence)
	}
	if m.CommitsLast30Days < lowActivityCommits {
		score += lowActivityPenalty
		reasons = append(reasons, ReasonLowActivity)
	}
	if m.Velocity == model.VelocityLow || m.Velocity == "" {
		score += lowVelocityPenalty
		reasons = append(reasons, ReasonLowVelocity)
	}
	return score, reasons
}

// Forecast scores a confidence map and activity metrics. Identical inputs
// always give identical output as long as the predictor is deterministic.
func (e *Engine) Forecast(ctx context.Context, conf model.SkillConfidence, m Metrics) Forecast {
	start := time.Now()
	avg := skill.Average(conf)

	rule, reasons := Rules(avg, m)
	pred := e.predict(ctx, Input{
		AvgConfidence:  avg,
		CommitVelocity: float64(m.CommitsLast30Days),
		HasVelocity:    m.VelocityKnown,
	})
	ml := model.ClampScore(pred.Risk)

	final := model.ClampScore(int(math.Round(float64(rule+ml) / 2)))
	level := model.LevelForScore(final)

	f := Forecast{
		RiskScore:    final,
		RiskLevel:    level,
		Summary:      summaries[level],
		Reasons:      reasons,
		RiskFactor:   "None",
		RuleRisk:     rule,
		MLRisk:       ml,
		ModelVersion: pred.ModelVersion,
		Mode:         pred.Mode,
	}
	if len(reasons) > 0 {
		f.RiskFactor = reasons[0]
		f.MitigationStrategy = mitigations[reasons[0]]
	} else {
		f.MitigationStrategy = "Keep your current cadence"
	}

	metrics.RecordForecast(float64(time.Since(start).Microseconds())/1000, final, string(level))
	return f
}

// predict calls the predictor and turns a panic into the heuristic fallback.
func (e *Engine) predict(ctx context.Context, in Input) (p Prediction) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn(ctx, "predictor panicked; using heuristic", logger.String("panic", fmt.Sprint(r)))
			metrics.RecordModelFallback("risk", "panic")
			p = Heuristic(in.AvgConfidence)
		}
	}()
	p = e.predictor.Predict(ctx, in)
	if p.ModelVersion == "" {
		p.ModelVersion = HeuristicVersion
	}
	if p.Mode == "" {
		p.Mode = model.ModeFallback
	}
	return p
}

// Snapshot turns a forecast into an immutable record.
func (f Forecast) Snapshot(id, userID, scope string, at time.Time) model.RiskSnapshot {
	return model.RiskSnapshot{
		ID:                 id,
		UserID:             userID,
		Scope:              scope,
		RiskScore:          f.RiskScore,
		RiskLevel:          f.RiskLevel,
		RiskFactor:         f.RiskFactor,
		MitigationStrategy: f.MitigationStrategy,
		RecordedAt:         at,
	}
}

// MLLog turns a forecast into a monitoring record.
func (f Forecast) MLLog(userID string, at time.Time) model.MLRiskLog {
	return model.MLRiskLog{
		UserID:       userID,
		RuleRisk:     f.RuleRisk,
		MLRisk:       f.MLRisk,
		FinalRisk:    f.RiskScore,
		ModelVersion: f.ModelVersion,
		Mode:         f.Mode,
		RecordedAt:   at,
	}
}
