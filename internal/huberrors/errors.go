// Package huberrors provides sentinel and custom error types for the application.
package huberrors

// ErrValidation represents a validation error.
// Use when client input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrUnauthorized is the sentinel for requests whose signature did not verify.
var ErrUnauthorized = &UnauthorizedError{}

// UnauthorizedError is a sentinel error for rejected webhook signatures.
// Event and CallID are best-effort values read from the unverified body, for logging only.
type UnauthorizedError struct {
	Event  string
	CallID string
}

// NewUnauthorizedError creates an UnauthorizedError carrying the claimed event and call id.
func NewUnauthorizedError(event, callID string) *UnauthorizedError {
	return &UnauthorizedError{
		Event:  event,
		CallID: callID,
	}
}

// Error implements the error interface.
func (e *UnauthorizedError) Error() string {
	return "invalid signature"
}

// Is implements the error interface for error comparison.
func (e *UnauthorizedError) Is(target error) bool {
	_, ok := target.(*UnauthorizedError)

	return ok
}
