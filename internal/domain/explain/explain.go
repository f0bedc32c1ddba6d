// Package explain turns per-feature risk contributions into quantified
// what-if actions.
package explain

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/careerpulse/internal/domain/features"
	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/pkg/logger"
	"github.com/okian/careerpulse/pkg/metrics"
)

const (
	// contributionThreshold is the smallest contribution treated as a risk driver.
	contributionThreshold = 0.1
	confidenceMultiplier  = 10
	velocityMultiplier    = 10
	marketGapImpact       = -15
)

// Sources reported on a Counterfactual.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Explainer yields signed per-feature contributions. Positive values push
// risk up.
type Explainer interface {
	Contributions(ctx context.Context, v features.Vector) (map[string]float64, error)
}

// FallbackContributions are the neutral values used when no explainer works.
func FallbackContributions() map[string]float64 {
	return map[string]float64{
		features.AvgConfidence:  0.5,
		features.CommitVelocity: 0.0,
	}
}

type behaviorAction struct {
	feature    string
	multiplier float64
	format     string
}

// Evaluated in this order so actions are stable.
var behaviorActions = []behaviorAction{
	{feature: features.AvgConfidence, multiplier: confidenceMultiplier, format: "Improve verified skill confidence (%d%% risk)"},
	{feature: features.CommitVelocity, multiplier: velocityMultiplier, format: "Increase commit velocity (%d%% risk)"},
}

// Counterfactuals builds what-if actions around an Explainer.
type Counterfactuals struct {
	explainer Explainer
	logger    logger.Logger
}

// Option applies a configuration option to Counterfactuals.
type Option func(*Counterfactuals)

// WithExplainer sets the contribution source.
func WithExplainer(e Explainer) Option {
	return func(c *Counterfactuals) {
		c.explainer = e
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Counterfactuals) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates Counterfactuals. Without an explainer every call uses the
// fallback contributions.
func New(opts ...Option) *Counterfactuals {
	c := &Counterfactuals{logger: logger.Get().Named("explain")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Explain never fails. projected_risk is current_risk plus the summed
// impacts, floored at 0.
func (c *Counterfactuals) Explain(ctx context.Context, v features.Vector, currentRisk int) model.Counterfactual {
	contrib, source := c.contributions(ctx, v)

	actions := make([]model.CounterfactualAction, 0, len(behaviorActions)+1)
	for _, b := range behaviorActions {
		val, ok := contrib[b.feature]
		if !ok || math.IsNaN(val) || math.IsInf(val, 0) || val <= contributionThreshold {
			continue
		}
		impact := -int(math.Round(val * b.multiplier))
		actions = append(actions, model.CounterfactualAction{
			Description: fmt.Sprintf(b.format, impact),
			Impact:      impact,
			Type:        model.ActionBehavior,
		})
	}
	if len(v.MarketGap) > 0 {
		actions = append(actions, model.CounterfactualAction{
			Description: fmt.Sprintf("Practice %s for 4 weeks (%d%% risk)", v.MarketGap[0], marketGapImpact),
			Impact:      marketGapImpact,
			Type:        model.ActionMarket,
		})
	}

	projected := currentRisk
	for _, a := range actions {
		projected += a.Impact
		metrics.RecordCounterfactualAction(string(a.Type))
	}
	if projected < 0 {
		projected = 0
	}

	return model.Counterfactual{
		CurrentRisk:   currentRisk,
		ProjectedRisk: projected,
		Actions:       actions,
		Summary:       Summary(currentRisk, projected),
		Source:        source,
	}
}

// Summary renders the one-line outcome sentence.
func Summary(current, projected int) string {
	return fmt.Sprintf("Executing the actions above could reduce your risk from %d%% to approximately %d%%.", current, projected)
}

func (c *Counterfactuals) contributions(ctx context.Context, v features.Vector) (out map[string]float64, source string) {
	if c.explainer == nil {
		return FallbackContributions(), SourceFallback
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn(ctx, "explainer panicked; using fallback contributions", logger.String("panic", fmt.Sprint(r)))
			metrics.RecordModelFallback("explain", "panic")
			out, source = FallbackContributions(), SourceFallback
		}
	}()
	contrib, err := c.explainer.Contributions(ctx, v)
	if err != nil {
		c.logger.Warn(ctx, "explainer failed; using fallback contributions", logger.Error(err))
		metrics.RecordModelFallback("explain", "error")
		return FallbackContributions(), SourceFallback
	}
	if contrib == nil {
		return FallbackContributions(), SourceFallback
	}
	return contrib, SourceModel
}
