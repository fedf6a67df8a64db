package model

import (
	"errors"
	"fmt"
)

// ErrValidation is matched (errors.Is) by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a malformed record field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
