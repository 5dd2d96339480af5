package services

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrMissingEmail      = errors.New("email is required, please try signing in again")
	ErrUserNotFound      = errors.New("user not found")
	ErrUpstream          = errors.New("upstream failure")
	ErrInvalidPayload    = errors.New("invalid webhook payload")
	ErrInvalidToken      = errors.New("invalid or expired refresh token")
)

// ValidationError is a caller-fixable input problem. Its message is safe to
// return to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationError(msg string) error {
	return &ValidationError{Message: msg}
}
