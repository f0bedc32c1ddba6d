package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrQueueFull   = errors.New("offload queue full")
	ErrQueueClosed = errors.New("offload queue closed")
)
