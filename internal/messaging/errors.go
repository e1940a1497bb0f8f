package messaging

import "errors"

var (
	ErrNotFound               = errors.New("conversation not found")
	ErrUnauthorized           = errors.New("not an active participant")
	ErrIneligibleApplication  = errors.New("application has not reached screening")
	ErrParticipantNotInvolved = errors.New("participant has no standing on the application")
	ErrRateLimited            = errors.New("message rate limit exceeded")
	ErrNotEnoughParticipants  = errors.New("at least two distinct participants required")
	ErrNoMessages             = errors.New("conversation has no messages")
	ErrAlreadyRated           = errors.New("conversation already rated by user")
	ErrInvalidInput           = errors.New("invalid input")
)
