package api

import "errors"

// ErrUnhealthy marks a failed health dependency.
var ErrUnhealthy = errors.New("service unhealthy")
