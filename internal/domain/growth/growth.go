// Package growth generates weekly improvement plans from harvested signals
// and verifies task completion against later harvests.
package growth

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/pkg/metrics"
)

const (
	// DefaultHardcoreStreak is the weekly streak that unlocks HARDCORE mode.
	DefaultHardcoreStreak = 4
	// HardcoreSkill is the fixed focus of HARDCORE plans.
	HardcoreSkill = "System Design"

	dominanceShare     = 0.8
	microCommitsCutoff = 5
	systemsSkill       = "Rust"
	cloudSkill         = "Go"
	cloudAltSkill      = "Kubernetes"
)

// Input is everything a plan is derived from.
type Input struct {
	UserID  string
	Signals model.RawSignals
	Streak  int
	Now     time.Time
}

// Generator builds weekly plans.
type Generator struct {
	hardcoreStreak int
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithHardcoreStreak changes the streak that forces HARDCORE mode.
func WithHardcoreStreak(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.hardcoreStreak = n
		}
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{hardcoreStreak: DefaultHardcoreStreak}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Focus runs the gap analysis and returns the target skill with its reasoning.
func Focus(signals model.RawSignals) (string, string) {
	ranked := signals.RankedLanguages()
	total := signals.TotalBytes()

	if len(ranked) > 0 && total > 0 {
		top := ranked[0]
		share := float64(top.Bytes) / float64(total)
		if share > dominanceShare && !hasLanguage(signals, systemsSkill) {
			return systemsSkill, fmt.Sprintf(
				"Gap Analysis: High %s dominance (>80%%) detected. Market trends indicate Rust as high-value expansion.", top.Language)
		}
	}
	if !hasLanguage(signals, cloudSkill) && !hasLanguage(signals, cloudAltSkill) {
		return cloudSkill, "Market demands Cloud Native skills. Go is the best entry point."
	}
	return ranked[0].Language, "Deepening expertise in primary stack."
}

// Generate returns a fresh plan for the ISO week of in.Now.
func (g *Generator) Generate(in Input) model.WeeklyPlan {
	focus, reasoning := Focus(in.Signals)
	mode := model.ModeGrowth
	if in.Signals.CommitsLast30Days < microCommitsCutoff {
		mode = model.ModeMicroLearning
		reasoning += " (Low activity detected. Adjusted to Micro-Learning: 15 min/day)."
	}
	codeIn := focus
	if in.Streak >= g.hardcoreStreak {
		focus = HardcoreSkill
		mode = model.ModeHardcore
		reasoning = fmt.Sprintf("HARDCORE MODE ACTIVE: Streak >= %d. Tutorials disabled. Ruthless Challenges only.", g.hardcoreStreak)
		codeIn = ""
		if ranked := in.Signals.RankedLanguages(); len(ranked) > 0 {
			codeIn = ranked[0].Language
		}
	}

	metrics.RecordPlanGenerated(string(mode))
	return model.WeeklyPlan{
		UserID:     in.UserID,
		WeekID:     model.WeekID(in.Now),
		FocusSkill: focus,
		Mode:       mode,
		Reasoning:  reasoning,
		Tasks:      Tasks(mode, focus, codeIn),
		CreatedAt:  in.Now,
	}
}

// Tasks returns the task template for a mode and focus skill. Code tasks are
// verified against pushed bytes in codeIn; an empty codeIn leaves them
// manual. HARDCORE focuses on design, so its code tasks are checked against
// the user's primary language.
func Tasks(mode model.PlanMode, focus, codeIn string) []model.Task {
	key := strings.ToLower(codeIn)
	switch mode {
	case model.ModeMicroLearning:
		return []model.Task{
			task(1, "Mon", model.TaskLearn, fmt.Sprintf("15 min: %s Syntax", focus), ""),
			task(2, "Wed", model.TaskCode, fmt.Sprintf("Snippet: Hello World in %s", focus), key),
			task(3, "Fri", model.TaskReview, "Quick Quiz", ""),
		}
	case model.ModeHardcore:
		return []model.Task{
			task(1, "Mon", model.TaskDesign, "System Design: Distributed Rate Limiter", ""),
			task(2, "Wed", model.TaskCode, "Implement Token Bucket Algo", key),
			task(3, "Fri", model.TaskCode, "Load Test & Benchmark", key),
		}
	default:
		return []model.Task{
			task(1, "Mon", model.TaskLearn, fmt.Sprintf("Deep Dive: %s Core Concepts", focus), ""),
			task(2, "Wed", model.TaskCode, fmt.Sprintf("CLI Tool: Parse JSON in %s", focus), key),
			task(3, "Fri", model.TaskCode, fmt.Sprintf("Refactor: Optimize %s Code", focus), key),
		}
	}
}

func task(id int, day string, typ model.TaskType, desc, key string) model.Task {
	return model.Task{ID: id, Day: day, Type: typ, Description: desc, VerifyKey: key, Status: model.TaskPending}
}

func hasLanguage(signals model.RawSignals, lang string) bool {
	for k := range signals.LanguageBytes {
		if strings.EqualFold(k, lang) {
			return true
		}
	}
	return false
}
