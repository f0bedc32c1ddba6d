package artifact

import "errors"

// Sentinel kinds for model artifact errors.
var (
	ErrModelUnavailable = errors.New("model artifact unavailable")
	ErrInvalidManifest  = errors.New("invalid model manifest")
	ErrBackend          = errors.New("model backend failure")
)
