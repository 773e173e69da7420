package identity

import "errors"

// Domain errors for the identity module.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token has expired")
	ErrNotOrganizer       = errors.New("payout accounts are for organizers")
)
