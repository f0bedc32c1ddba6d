package keyword

import "sort"

// Manifest file names fetched from a repository root.
const (
	ManifestPackageJSON  = "package.json"
	ManifestRequirements = "requirements.txt"
	ManifestPyProject    = "pyproject.toml"
	ManifestCargo        = "Cargo.toml"
	ManifestGoMod        = "go.mod"
)

// Dictionary maps a manifest file name to keyword -> framework label.
type Dictionary map[string]map[string]string

// DefaultDictionary is the fixed framework dictionary per manifest type.
// package.json keys are quoted so "next" does not match "nextTick".
func DefaultDictionary() Dictionary {
	python := map[string]string{
		"django":       "Django",
		"flask":        "Flask",
		"fastapi":      "FastAPI",
		"torch":        "PyTorch",
		"tensorflow":   "TensorFlow",
		"pandas":       "Pandas",
		"scikit-learn": "scikit-learn",
	}
	return Dictionary{
		ManifestPackageJSON: {
			`"react"`:         "React",
			`"vue"`:           "Vue",
			`"next"`:          "Next.js",
			`"express"`:       "Express",
			`"@angular/core"`: "Angular",
			`"svelte"`:        "Svelte",
			`"typescript"`:    "TypeScript",
		},
		ManifestRequirements: python,
		ManifestPyProject:    python,
		ManifestCargo: {
			"tokio":     "Tokio",
			"actix-web": "Actix",
			"axum":      "Axum",
			"serde":     "Serde",
		},
		ManifestGoMod: {
			"github.com/gin-gonic/gin": "Gin",
			"github.com/labstack/echo": "Echo",
			"k8s.io/client-go":         "Kubernetes",
			"google.golang.org/grpc":   "gRPC",
			"gorm.io/gorm":             "GORM",
		},
	}
}

// Manifests returns the manifest names in a stable order.
func (d Dictionary) Manifests() []string {
	order := []string{ManifestPackageJSON, ManifestRequirements, ManifestPyProject, ManifestCargo, ManifestGoMod}
	out := make([]string, 0, len(d))
	for _, name := range order {
		if _, ok := d[name]; ok {
			out = append(out, name)
		}
	}
	var extra []string
	for name := range d {
		if !containsString(out, name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Matchers compiles one Matcher per manifest.
func (d Dictionary) Matchers() map[string]*Matcher {
	out := make(map[string]*Matcher, len(d))
	for name, kw := range d {
		out[name] = NewLabeledMatcher(kw)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
