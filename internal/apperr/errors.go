// Package apperr holds sentinel errors shared across operation surfaces.
package apperr

import "errors"

var (
	ErrBaseDirNotFound = errors.New("base dir not found")
	ErrInvalidRequest  = errors.New("invalid request")
)
