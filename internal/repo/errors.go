package repo

import "errors"

var (
	// ErrValidation marks input rejected before any write.
	ErrValidation = errors.New("repo: validation failed")
	// ErrNotFound marks a referenced variable attribute that does not exist.
	ErrNotFound = errors.New("repo: not found")
)
