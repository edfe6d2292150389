package errs

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAuthenticationFailure = errors.New("authentication failed")
	ErrHostNotAllowed        = errors.New("host not allowed for judge client")
)
