package model

import "time"

// RiskLevel is the banded form of a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Level thresholds shared by forecasting and benchmarking.
const (
	HighRiskThreshold   = 60
	MediumRiskThreshold = 30
)

// LevelForScore bands a 0..100 score.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RiskSnapshot is an immutable record of one analysis cycle.
type RiskSnapshot struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Scope              string    `json:"scope,omitempty"`
	RiskScore          int       `json:"risk_score"`
	RiskLevel          RiskLevel `json:"risk_level"`
	RiskFactor         string    `json:"risk_factor"`
	MitigationStrategy string    `json:"mitigation_strategy"`
	RecordedAt         time.Time `json:"recorded_at"`
}

// SkillSnapshot is one skill confidence observation.
type SkillSnapshot struct {
	UserID     string    `json:"user_id"`
	Skill      string    `json:"skill"`
	Confidence int       `json:"confidence"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PredictionMode names which scoring path produced the ML component.
type PredictionMode string

const (
	// ModeAdvanced uses confidence and commit velocity.
	ModeAdvanced PredictionMode = "advanced"
	// ModeLegacy uses confidence only.
	ModeLegacy   PredictionMode = "legacy"
	ModeFallback PredictionMode = "fallback"
)

// MLRiskLog records both halves of a hybrid forecast for model monitoring.
type MLRiskLog struct {
	UserID       string         `json:"user_id"`
	RuleRisk     int            `json:"rule_risk"`
	MLRisk       int            `json:"ml_risk"`
	FinalRisk    int            `json:"final_risk"`
	ModelVersion string         `json:"model_version"`
	Mode         PredictionMode `json:"mode"`
	RecordedAt   time.Time      `json:"recorded_at"`
}

// ActionType classifies a counterfactual action.
type ActionType string

const (
	ActionBehavior ActionType = "behavior"
	ActionMarket   ActionType = "market"
)

// CounterfactualAction is one what-if change. Impact is a signed
// percentage-point delta on the risk score.
type CounterfactualAction struct {
	Description string     `json:"action"`
	Impact      int        `json:"impact"`
	Type        ActionType `json:"type"`
}

// Counterfactual is the explainer output. It is never persisted.
type Counterfactual struct {
	CurrentRisk   int                    `json:"current_risk"`
	ProjectedRisk int                    `json:"projected_risk"`
	Actions       []CounterfactualAction `json:"actions"`
	Summary       string                 `json:"summary"`
	Source        string                 `json:"source"`
}

// MentorMemory is a free-form note kept per user (summaries, alerts).
type MentorMemory struct {
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Content    string    `json:"content"`
	RecordedAt time.Time `json:"recorded_at"`
}
