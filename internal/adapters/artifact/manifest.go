package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest name looked up inside a model directory.
const ManifestFile = "manifest.yaml"

// Backends.
const (
	BackendLinear = "linear"
	BackendONNX   = "onnx"
)

// Manifest describes the model artifacts of one release.
type Manifest struct {
	Version  string `yaml:"version"`
	Advanced *Spec  `yaml:"advanced"`
	Legacy   *Spec  `yaml:"legacy"`
}

// Spec is one scoring path. Linear specs score with Intercept and Weights;
// ONNX specs run File and keep Weights only as the explanation surrogate.
type Spec struct {
	Backend   string             `yaml:"backend"`
	File      string             `yaml:"file"`
	Input     string             `yaml:"input"`
	Output    string             `yaml:"output"`
	Features  []string           `yaml:"features"`
	Intercept float64            `yaml:"intercept"`
	Weights   map[string]float64 `yaml:"weights"`
	Baseline  map[string]float64 `yaml:"baseline"`
}

// LoadManifest reads dir/manifest.yaml. A missing file is ErrModelUnavailable.
func LoadManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, fmt.Errorf("%s: %w", path, ErrModelUnavailable)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse %s: %v: %w", path, err, ErrInvalidManifest)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate fills defaults and checks each spec.
func (m *Manifest) Validate() error {
	if m.Advanced == nil && m.Legacy == nil {
		return fmt.Errorf("no scoring path: %w", ErrInvalidManifest)
	}
	if m.Version == "" {
		m.Version = "unversioned"
	}
	if m.Advanced != nil {
		if err := m.Advanced.validate("advanced", []string{"avg_confidence", "commit_velocity"}); err != nil {
			return err
		}
	}
	if m.Legacy != nil {
		if err := m.Legacy.validate("legacy", []string{"avg_confidence"}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spec) validate(name string, defaultFeatures []string) error {
	if s.Backend == "" {
		s.Backend = BackendLinear
	}
	if len(s.Features) == 0 {
		s.Features = defaultFeatures
	}
	switch s.Backend {
	case BackendLinear:
		if len(s.Weights) == 0 {
			return fmt.Errorf("%s: linear backend without weights: %w", name, ErrInvalidManifest)
		}
	case BackendONNX:
		if s.File == "" {
			return fmt.Errorf("%s: onnx backend without file: %w", name, ErrInvalidManifest)
		}
		if s.Input == "" {
			s.Input = "input"
		}
		if s.Output == "" {
			s.Output = "output"
		}
	default:
		return fmt.Errorf("%s: unknown backend %q: %w", name, s.Backend, ErrInvalidManifest)
	}
	return nil
}
