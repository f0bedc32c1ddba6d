// Package artifact loads versioned risk model artifacts described by a YAML
// manifest and serves them as a risk predictor and a contribution explainer.
//
// A model directory holds manifest.yaml plus any ONNX graph it names. The
// advanced path scores confidence and commit velocity; the legacy path scores
// confidence alone. When neither path can serve a request the inverse
// confidence heuristic is returned.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/careerpulse/internal/domain/explain"
	"github.com/okian/careerpulse/internal/domain/features"
	"github.com/okian/careerpulse/internal/domain/model"
	"github.com/okian/careerpulse/internal/domain/risk"
	"github.com/okian/careerpulse/pkg/logger"
	"github.com/okian/careerpulse/pkg/metrics"
)

// LegacyVersion labels predictions of the confidence-only path.
const LegacyVersion = "legacy"

type scorer interface {
	score(x map[string]float64) (float64, error)
}

type linearScorer struct{ *linear }

func (l linearScorer) score(x map[string]float64) (float64, error) { return l.linear.score(x), nil }

type path struct {
	scorer    scorer
	surrogate *linear
	closer    func() error
}

// Model implements risk.Predictor and explain.Explainer.
type Model struct {
	version  string
	advanced *path
	legacy   *path
	logger   logger.Logger
}

var (
	_ risk.Predictor    = (*Model)(nil)
	_ explain.Explainer = (*Model)(nil)
)

// Option applies a configuration option to Load.
type Option func(*loadOptions)

type loadOptions struct {
	libPath string
	logger  logger.Logger
}

// WithSharedLibraryPath pins the onnxruntime library instead of probing.
func WithSharedLibraryPath(p string) Option {
	return func(o *loadOptions) { o.libPath = p }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *loadOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Load reads the manifest in dir and opens every path it declares. A path
// whose backend cannot be opened is dropped with a warning; Load fails only
// when no path is left.
func Load(ctx context.Context, dir string, opts ...Option) (*Model, error) {
	o := loadOptions{logger: logger.Get().Named("artifact")}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	mdl := &Model{version: m.Version, logger: o.logger}
	var openErrs []error
	if m.Advanced != nil {
		p, err := openPath(dir, m.Advanced, o.libPath)
		if err != nil {
			openErrs = append(openErrs, fmt.Errorf("advanced: %w", err))
			o.logger.Warn(ctx, "advanced model unavailable", logger.Error(err))
			metrics.RecordModelFallback("artifact", "advanced_unavailable")
		} else {
			mdl.advanced = p
		}
	}
	if m.Legacy != nil {
		p, err := openPath(dir, m.Legacy, o.libPath)
		if err != nil {
			openErrs = append(openErrs, fmt.Errorf("legacy: %w", err))
			o.logger.Warn(ctx, "legacy model unavailable", logger.Error(err))
			metrics.RecordModelFallback("artifact", "legacy_unavailable")
		} else {
			mdl.legacy = p
		}
	}
	if mdl.advanced == nil && mdl.legacy == nil {
		return nil, fmt.Errorf("%s: %w: %w", dir, ErrModelUnavailable, errors.Join(openErrs...))
	}

	o.logger.Info(ctx, "model loaded",
		logger.String("dir", dir),
		logger.String("version", mdl.version),
		logger.Bool("advanced", mdl.advanced != nil),
		logger.Bool("legacy", mdl.legacy != nil))
	return mdl, nil
}

func openPath(dir string, s *Spec, libPath string) (*path, error) {
	var surrogate *linear
	if len(s.Weights) > 0 {
		surrogate = newLinear(s)
	}
	switch s.Backend {
	case BackendONNX:
		sess, err := openONNX(dir, s, libPath)
		if err != nil {
			return nil, err
		}
		return &path{scorer: sess, surrogate: surrogate, closer: sess.close}, nil
	default:
		return &path{scorer: linearScorer{surrogate}, surrogate: surrogate}, nil
	}
}

func (p *path) score(x map[string]float64) (float64, error) {
	y, err := p.scorer.score(x)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("non-finite prediction: %w", ErrBackend)
	}
	return y, nil
}

// Version returns the manifest version.
func (m *Model) Version() string { return m.version }

// Predict scores in. Advanced needs a velocity signal; otherwise legacy is
// tried, then the heuristic.
func (m *Model) Predict(ctx context.Context, in risk.Input) risk.Prediction {
	x := map[string]float64{
		features.AvgConfidence:  in.AvgConfidence,
		features.CommitVelocity: in.CommitVelocity,
	}
	if in.HasVelocity && m.advanced != nil {
		y, err := m.advanced.score(x)
		if err == nil {
			return risk.Prediction{Risk: normalize(y), ModelVersion: m.version, Mode: model.ModeAdvanced}
		}
		m.logger.Warn(ctx, "advanced prediction failed", logger.Error(err))
		metrics.RecordModelFallback("artifact", "advanced_error")
	}
	if m.legacy != nil {
		y, err := m.legacy.score(x)
		if err == nil {
			return risk.Prediction{Risk: normalize(y), ModelVersion: LegacyVersion, Mode: model.ModeLegacy}
		}
		m.logger.Warn(ctx, "legacy prediction failed", logger.Error(err))
		metrics.RecordModelFallback("artifact", "legacy_error")
	}
	return risk.Heuristic(in.AvgConfidence)
}

// Contributions explains a vector with the advanced path's linear form.
func (m *Model) Contributions(_ context.Context, v features.Vector) (map[string]float64, error) {
	if m.advanced == nil || m.advanced.surrogate == nil {
		return nil, fmt.Errorf("no advanced weights: %w", explain.ErrExplainerUnavailable)
	}
	return m.advanced.surrogate.contributions(v.Numeric()), nil
}

// Close releases backend sessions.
func (m *Model) Close() error {
	var errs []error
	for _, p := range []*path{m.advanced, m.legacy} {
		if p != nil && p.closer != nil {
			errs = append(errs, p.closer())
		}
	}
	return errors.Join(errs...)
}

// normalize truncates toward zero and clamps to [0,100].
func normalize(y float64) int {
	return model.ClampScore(int(y))
}
