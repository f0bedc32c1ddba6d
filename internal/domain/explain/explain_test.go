package explain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/careerpulse/internal/domain/explain"
	"github.com/okian/careerpulse/internal/domain/features"
	"github.com/okian/careerpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type stubExplainer struct {
	contrib map[string]float64
	err     error
}

func (s stubExplainer) Contributions(context.Context, features.Vector) (map[string]float64, error) {
	return s.contrib, s.err
}

func TestExplain(t *testing.T) {
	ctx := context.Background()

	Convey("Given a model where confidence drives risk and a market gap exists", t, func() {
		c := explain.New(explain.WithExplainer(stubExplainer{contrib: map[string]float64{
			features.AvgConfidence:  2.5,
			features.CommitVelocity: -1.0,
		}}))
		cf := c.Explain(ctx, features.Vector{AvgConfidence: 50, CommitVelocity: 30, MarketGap: []string{"Rust"}}, 80)

		Convey("Then one behavior and one market action are emitted", func() {
			So(cf.Actions, ShouldHaveLength, 2)
			So(cf.Actions[0].Description, ShouldEqual, "Improve verified skill confidence (-25% risk)")
			So(cf.Actions[0].Impact, ShouldEqual, -25)
			So(cf.Actions[0].Type, ShouldEqual, model.ActionBehavior)
			So(cf.Actions[1].Description, ShouldEqual, "Practice Rust for 4 weeks (-15% risk)")
			So(cf.Actions[1].Type, ShouldEqual, model.ActionMarket)
		})

		Convey("Then the projection subtracts both impacts", func() {
			So(cf.CurrentRisk, ShouldEqual, 80)
			So(cf.ProjectedRisk, ShouldEqual, 40)
			So(cf.Source, ShouldEqual, explain.SourceModel)
			So(cf.Summary, ShouldEqual, "Executing the actions above could reduce your risk from 80% to approximately 40%.")
		})
	})

	Convey("Given a model where velocity drives risk", t, func() {
		c := explain.New(explain.WithExplainer(stubExplainer{contrib: map[string]float64{
			features.AvgConfidence:  -0.5,
			features.CommitVelocity: 1.2,
		}}))
		cf := c.Explain(ctx, features.Vector{AvgConfidence: 90, CommitVelocity: 2}, 60)

		Convey("Then only the velocity action appears", func() {
			So(cf.Actions, ShouldHaveLength, 1)
			So(cf.Actions[0].Description, ShouldEqual, "Increase commit velocity (-12% risk)")
			So(cf.ProjectedRisk, ShouldEqual, 48)
		})
	})

	Convey("Given contributions under the threshold and no gap", t, func() {
		c := explain.New(explain.WithExplainer(stubExplainer{contrib: map[string]float64{
			features.AvgConfidence:  0.1,
			features.CommitVelocity: 0.05,
		}}))
		cf := c.Explain(ctx, features.Vector{}, 37)

		Convey("Then nothing changes", func() {
			So(cf.Actions, ShouldBeEmpty)
			So(cf.ProjectedRisk, ShouldEqual, 37)
		})
	})

	Convey("Given large impacts", t, func() {
		c := explain.New(explain.WithExplainer(stubExplainer{contrib: map[string]float64{
			features.AvgConfidence:  9,
			features.CommitVelocity: 9,
		}}))
		cf := c.Explain(ctx, features.Vector{MarketGap: []string{"Go"}}, 20)

		Convey("Then the projection is floored at zero", func() {
			So(cf.ProjectedRisk, ShouldEqual, 0)
			So(cf.ProjectedRisk, ShouldBeLessThanOrEqualTo, cf.CurrentRisk)
		})
	})

	Convey("Given a failing explainer", t, func() {
		c := explain.New(explain.WithExplainer(stubExplainer{err: errors.New("corrupted artifact")}))
		cf := c.Explain(ctx, features.Vector{}, 50)

		Convey("Then the fallback contributions are used", func() {
			So(cf.Source, ShouldEqual, explain.SourceFallback)
			So(cf.Actions, ShouldHaveLength, 1)
			So(cf.Actions[0].Impact, ShouldEqual, -5)
			So(cf.ProjectedRisk, ShouldEqual, 45)
		})
	})

	Convey("Given no explainer at all", t, func() {
		cf := explain.New().Explain(ctx, features.Vector{MarketGap: []string{"AWS"}}, 10)
		So(cf.Source, ShouldEqual, explain.SourceFallback)
		So(cf.ProjectedRisk, ShouldEqual, 0)
		So(explain.FallbackContributions(), ShouldResemble, map[string]float64{
			features.AvgConfidence:  0.5,
			features.CommitVelocity: 0.0,
		})
	})
}
