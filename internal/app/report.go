package service

import (
	"github.com/okian/careerpulse/internal/domain/benchmark"
	"github.com/okian/careerpulse/internal/domain/features"
	"github.com/okian/careerpulse/internal/domain/governance"
	"github.com/okian/careerpulse/internal/domain/growth"
	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/internal/domain/risk"
)

// Report is the outcome of one analysis cycle. Empty is set when the user
// has no profile; every other field is then zero.
type Report struct {
	UserID         string                `json:"user_id"`
	Empty          bool                  `json:"empty"`
	Signals        model.RawSignals      `json:"signals"`
	Confidence     model.SkillConfidence `json:"confidence"`
	Forecast       risk.Forecast         `json:"forecast"`
	Spike          *governance.Alert     `json:"spike,omitempty"`
	LevelChanged   bool                  `json:"level_changed"`
	Features       features.Vector       `json:"features"`
	Counterfactual model.Counterfactual  `json:"counterfactual"`
	Plan           model.WeeklyPlan      `json:"plan"`
	MarketOverlap  int                   `json:"market_overlap"`
	// PersistErrors lists the stores that failed. The computed values above
	// are still valid.
	PersistErrors []string `json:"persist_errors,omitempty"`
}

// Persisted reports whether every write of the cycle succeeded.
func (r Report) Persisted() bool { return len(r.PersistErrors) == 0 }

// BenchmarkReport places a user within their team and describes the team.
// Fields the team has too little data for stay nil.
type BenchmarkReport struct {
	UserID        string                   `json:"user_id"`
	Empty         bool                     `json:"empty"`
	Scope         string                   `json:"scope"`
	Standing      *benchmark.Standing      `json:"standing,omitempty"`
	Burnout       *model.TeamBenchmark     `json:"burnout,omitempty"`
	Health        *benchmark.Health        `json:"health,omitempty"`
	Exit          *benchmark.Simulation    `json:"exit_simulation,omitempty"`
	Hire          *benchmark.Simulation    `json:"hire_simulation,omitempty"`
	Contributions []benchmark.Contribution `json:"contributions"`
	History       benchmark.Timeline       `json:"history"`
	PersistErrors []string                 `json:"persist_errors,omitempty"`
}

// VerifyReport is the outcome of one task verification.
type VerifyReport struct {
	growth.Verification
	Streak        int      `json:"streak"`
	StreakMoved   bool     `json:"streak_moved"`
	PersistErrors []string `json:"persist_errors,omitempty"`
}

// TrustReport combines the trust score with the checks behind it.
type TrustReport struct {
	Trust      governance.Trust           `json:"trust"`
	Integrity  governance.IntegrityStatus `json:"integrity"`
	Model      governance.ModelStatus     `json:"model"`
	Compliance *governance.Compliance     `json:"compliance,omitempty"`
}
