package domain

import (
	"errors"
	"strings"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field problem found in a request.
// It matches ErrValidation with errors.Is; a single cause such as
// ErrSameParty or ErrInvalidPrice is matched as well.
type ValidationError struct {
	Fields []FieldError
	cause  error
}

func (e *ValidationError) Error() string {
	if e.cause != nil && len(e.Fields) == 0 {
		return e.cause.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.cause != nil && target == e.cause)
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Add records a field problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns nil when no field was rejected.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 && e.cause == nil {
		return nil
	}
	return e
}

// NewValidationError wraps a single rule violation as a validation failure.
func NewValidationError(field string, cause error) *ValidationError {
	return &ValidationError{
		Fields: []FieldError{{Field: field, Message: cause.Error()}},
		cause:  cause,
	}
}

// FieldErrors extracts the field list from err, if it is a validation failure.
func FieldErrors(err error) []FieldError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
