package applications

import "errors"

var (
	ErrNotFound           = errors.New("application not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTerminalState      = errors.New("application is in a terminal state")
	ErrPreconditionFailed = errors.New("pre-hire confirmation required")
	ErrAlreadyApplied     = errors.New("active application already exists for job and candidate")
	ErrConflict           = errors.New("application modified concurrently")
	ErrInvalidInput       = errors.New("invalid input")
)
