package explain

import "errors"

// ErrExplainerUnavailable is returned by explainers without a loaded model.
var ErrExplainerUnavailable = errors.New("explainer unavailable")
