package governance

import "errors"

// ErrInvalidRetention is returned for a negative retention window.
var ErrInvalidRetention = errors.New("invalid retention window")
