package domain

import "errors"

var (
	// ErrModelUnavailable indicates the model backend failed or timed out.
	ErrModelUnavailable = errors.New("model backend unavailable")

	// ErrProfileNotFound indicates the user has no profile row.
	ErrProfileNotFound = errors.New("profile not found")
)
