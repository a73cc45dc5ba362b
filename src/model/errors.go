package model

import "errors"

// ErrOrderNotFound is returned by mutating store operations when no order matches the orderId.
var ErrOrderNotFound = errors.New("Order not found")

// ValidationError reports a missing, malformed or disallowed field in a payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
