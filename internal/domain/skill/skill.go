// Package skill turns raw byte-count signals into confidence and market scores.
package skill

import (
	"math"
	"strings"

	"github.com/okian/careerpulse/internal/domain/model"
)

const (
	saturationBytes = 100_000
	claimBonus      = 0.2
	topN            = 3
)

// DefaultMarketSkills is the fixed high-demand list used for market overlap.
var DefaultMarketSkills = []string{"Rust", "Go", "Python", "AI/ML", "React", "System Design", "Cloud Architecture"}

// Calculator scores skills against a market list.
type Calculator struct {
	market []string
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithMarketSkills replaces the high-demand list.
func WithMarketSkills(skills []string) Option {
	return func(c *Calculator) {
		if len(skills) > 0 {
			c.market = append([]string(nil), skills...)
		}
	}
}

// NewCalculator creates a Calculator.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{market: DefaultMarketSkills}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score returns a 0..100 confidence for one skill. Negative byte counts count
// as zero.
func Score(skill string, bytes int64, claimed []string) int {
	if bytes < 0 {
		bytes = 0
	}
	base := math.Min(float64(bytes)/saturationBytes, 1.0)
	if IsClaimed(skill, claimed) {
		base += claimBonus
	}
	return int(math.Round(math.Min(base, 1.0) * 100))
}

// IsClaimed matches a skill against the self-claimed list, case-insensitively.
func IsClaimed(skill string, claimed []string) bool {
	for _, c := range claimed {
		if strings.EqualFold(strings.TrimSpace(c), skill) {
			return true
		}
	}
	return false
}

// Compute scores every harvested language. A claim without code behind it
// earns nothing.
func (c *Calculator) Compute(signals model.RawSignals, claimed []string) model.SkillConfidence {
	out := make(model.SkillConfidence, len(signals.LanguageBytes))
	for lang, b := range signals.LanguageBytes {
		out[lang] = Score(lang, b, claimed)
	}
	return out
}

// Average is the mean confidence; an empty map averages to 0.
func Average(conf model.SkillConfidence) float64 {
	total := 0
	for _, v := range conf {
		total += v
	}
	n := len(conf)
	if n < 1 {
		n = 1
	}
	return float64(total) / float64(n)
}

// MarketOverlap is round(|top3 ∩ market| / 3 * 100) over the top languages by
// bytes. Zero signals score 0.
func (c *Calculator) MarketOverlap(signals model.RawSignals) int {
	ranked := signals.RankedLanguages()
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	hits := 0
	for _, l := range ranked {
		if l.Bytes > 0 && containsFold(c.market, l.Language) {
			hits++
		}
	}
	return int(math.Round(float64(hits) / topN * 100))
}

// Market returns a copy of the market list.
func (c *Calculator) Market() []string { return append([]string(nil), c.market...) }

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
