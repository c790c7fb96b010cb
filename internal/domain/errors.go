package domain

import "errors"

var (
	ErrUnknownSubject      = errors.New("unknown voting subject")
	ErrValueNotIntegral    = errors.New("vote value must be a whole number")
	ErrValueOutOfRange     = errors.New("vote value out of range")
	ErrRateLimited         = errors.New("vote rate limit exceeded")
	ErrDuplicateSubscriber = errors.New("email already subscribed")
)
