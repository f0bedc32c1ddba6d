package growth

import "errors"

var (
	// ErrTaskNotFound is returned when a plan has no task with the given ID.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNoPlan is returned when verification runs without an active plan.
	ErrNoPlan = errors.New("no active plan")
)
