package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/careerpulse/internal/adapters/artifact"
	"github.com/okian/careerpulse/internal/domain/explain"
	"github.com/okian/careerpulse/internal/domain/features"
	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/internal/domain/risk"
	"github.com/okian/careerpulse/pkg/logger"
)

const linearManifest = `
version: "1.1.0"
advanced:
  intercept: 100
  weights:
    avg_confidence: -0.8
    commit_velocity: -0.5
  baseline:
    avg_confidence: 50
    commit_velocity: 20
legacy:
  intercept: 100
  weights:
    avg_confidence: -1.0
`

func writeManifest(t *testing.T, body string) string {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, artifact.ManifestFile), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given a linear manifest", t, func() {
		m, err := artifact.Load(ctx, writeManifest(t, linearManifest), artifact.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		defer m.Close()

		Convey("When velocity is known", func() {
			p := m.Predict(ctx, risk.Input{AvgConfidence: 40, CommitVelocity: 10, HasVelocity: true})

			Convey("Then the advanced path scores and truncates", func() {
				// 100 - 32 - 5
				So(p.Risk, ShouldEqual, 63)
				So(p.Mode, ShouldEqual, model.ModeAdvanced)
				So(p.ModelVersion, ShouldEqual, "1.1.0")
				So(m.Version(), ShouldEqual, "1.1.0")
			})
		})

		Convey("When velocity is missing", func() {
			p := m.Predict(ctx, risk.Input{AvgConfidence: 72.5})

			Convey("Then the legacy path is used", func() {
				So(p.Risk, ShouldEqual, 27)
				So(p.Mode, ShouldEqual, model.ModeLegacy)
				So(p.ModelVersion, ShouldEqual, artifact.LegacyVersion)
			})
		})

		Convey("When the prediction is out of range", func() {
			p := m.Predict(ctx, risk.Input{AvgConfidence: 200, CommitVelocity: 300, HasVelocity: true})
			So(p.Risk, ShouldEqual, 0)
		})

		Convey("When contributions are requested", func() {
			c, err := m.Contributions(ctx, features.Vector{AvgConfidence: 30, CommitVelocity: 24})

			Convey("Then they are weight times distance from baseline", func() {
				So(err, ShouldBeNil)
				So(c[features.AvgConfidence], ShouldAlmostEqual, 16)
				So(c[features.CommitVelocity], ShouldAlmostEqual, -2)
			})

			Convey("Then the explainer turns them into actions", func() {
				cf := explain.New(explain.WithExplainer(m)).Explain(ctx, features.Vector{AvgConfidence: 30, CommitVelocity: 24}, 70)
				So(cf.Source, ShouldEqual, explain.SourceModel)
				So(cf.Actions[0].Impact, ShouldEqual, -160)
				So(cf.ProjectedRisk, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a legacy-only manifest", t, func() {
		m, err := artifact.Load(ctx, writeManifest(t, "legacy:\n  intercept: 90\n  weights: {avg_confidence: -1}\n"))
		So(err, ShouldBeNil)

		Convey("Then advanced requests fall through to legacy", func() {
			p := m.Predict(ctx, risk.Input{AvgConfidence: 10, CommitVelocity: 99, HasVelocity: true})
			So(p.Risk, ShouldEqual, 80)
			So(p.Mode, ShouldEqual, model.ModeLegacy)
		})

		Convey("Then contributions are unavailable", func() {
			_, err := m.Contributions(ctx, features.Vector{})
			So(errors.Is(err, explain.ErrExplainerUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given an onnx manifest without a runtime library", t, func() {
		body := `
version: "2.0.0"
advanced:
  backend: onnx
  file: risk.onnx
  weights: {avg_confidence: -1, commit_velocity: -1}
legacy:
  weights: {avg_confidence: -1}
  intercept: 100
`
		m, err := artifact.Load(ctx, writeManifest(t, body), artifact.WithSharedLibraryPath("/nonexistent/libonnxruntime.so"))

		Convey("Then the advanced path is dropped and legacy still serves", func() {
			So(err, ShouldBeNil)
			p := m.Predict(ctx, risk.Input{AvgConfidence: 35, HasVelocity: true})
			So(p.Mode, ShouldEqual, model.ModeLegacy)
			So(p.Risk, ShouldEqual, 65)
		})
	})

	Convey("Given an onnx-only manifest without a runtime library", t, func() {
		body := "advanced:\n  backend: onnx\n  file: risk.onnx\n"
		_, err := artifact.Load(ctx, writeManifest(t, body), artifact.WithSharedLibraryPath("/nonexistent/libonnxruntime.so"))

		Convey("Then loading fails as unavailable", func() {
			So(errors.Is(err, artifact.ErrModelUnavailable), ShouldBeTrue)
			So(errors.Is(err, artifact.ErrBackend), ShouldBeTrue)
		})
	})

	Convey("Given a directory without a manifest", t, func() {
		_, err := artifact.Load(ctx, t.TempDir())

		Convey("Then the model is unavailable", func() {
			So(errors.Is(err, artifact.ErrModelUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given malformed manifests", t, func() {
		cases := map[string]string{
			"empty":           "version: x\n",
			"bad backend":     "legacy:\n  backend: torch\n  weights: {avg_confidence: 1}\n",
			"missing weights": "advanced:\n  intercept: 3\n",
			"onnx no file":    "advanced:\n  backend: onnx\n",
			"not yaml":        "advanced: [unclosed\n",
		}
		for name, body := range cases {
			Convey("Then "+name+" is rejected", func() {
				_, err := artifact.LoadManifest(writeManifest(t, body))
				So(errors.Is(err, artifact.ErrInvalidManifest), ShouldBeTrue)
			})
		}
	})
}
