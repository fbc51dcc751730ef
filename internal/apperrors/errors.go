package apperrors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for ownership/auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrQuizInactive marks a quiz that exists but is not published.
	ErrQuizInactive = errors.New("quiz inactive")
	// ErrNoActiveContent marks an edit that would leave a quiz without any
	// non-archived question holding a non-archived option.
	ErrNoActiveContent = errors.New("quiz would have no active content")
)
