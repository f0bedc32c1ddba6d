package service

import "errors"

var (
	// ErrNotStarted is returned by operations called before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidUser is returned for an empty user ID.
	ErrInvalidUser = errors.New("invalid user id")
)
