package models

import (
	"errors"
)

var (
	ErrConfiguration    = errors.New("invalid configuration")
	ErrAuthentication   = errors.New("authentication failed")
	ErrRequest          = errors.New("invalid request")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrMerge            = errors.New("result does not match any input row")
)
