package models

import "errors"

// Validation failures surface to the caller unchanged, the handler layer
// maps them to HTTP statuses. Anything else is a repository error and
// propagates as-is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
)
