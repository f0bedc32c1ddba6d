package repository

import (
	"errors"

	"github.com/okian/careerpulse/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound      = model.ErrNotFound
	ErrInvalidLimit  = errors.New("invalid limit")
	ErrInvalidRecord = errors.New("invalid record")
	ErrClosed        = errors.New("store closed")
)
