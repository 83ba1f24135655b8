package meshconfig

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a configuration error
type ErrorType int

const (
	// ErrTypeValueTooLong indicates a byte string exceeds its field capacity
	ErrTypeValueTooLong ErrorType = iota
	// ErrTypeUnknownParameter indicates an unrecognized parameter name
	ErrTypeUnknownParameter
	// ErrTypeTypeMismatch indicates a parameter name or value of the wrong type
	ErrTypeTypeMismatch
	// ErrTypeValueOutOfRange indicates a numeric value outside its accepted range
	ErrTypeValueOutOfRange
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeValueTooLong:
		return "Value Too Long"
	case ErrTypeUnknownParameter:
		return "Unknown Parameter"
	case ErrTypeTypeMismatch:
		return "Type Mismatch"
	case ErrTypeValueOutOfRange:
		return "Value Out Of Range"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned for every rejected get or set on a Config
type Error struct {
	Type    ErrorType // Category of error
	Field   string    // Parameter the error refers to
	Message string    // Human-readable error message
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Field, e.Message)
}

// NewValueTooLongError creates an error for a byte string longer than limit
func NewValueTooLongError(field string, length, limit int) *Error {
	return &Error{
		Type:    ErrTypeValueTooLong,
		Field:   field,
		Message: fmt.Sprintf("too long (max %d bytes): %d bytes", limit, length),
	}
}

// NewUnknownParameterError creates an error for an unrecognized parameter
func NewUnknownParameterError(field string) *Error {
	return &Error{
		Type:    ErrTypeUnknownParameter,
		Field:   field,
		Message: "unknown config param",
	}
}

// NewTypeMismatchError creates an error for a value of the wrong type
func NewTypeMismatchError(field string, want string, got any) *Error {
	return &Error{
		Type:    ErrTypeTypeMismatch,
		Field:   field,
		Message: fmt.Sprintf("expected %s, got %T", want, got),
	}
}

// NewValueOutOfRangeError creates an error for a rejected numeric value
func NewValueOutOfRangeError(field string, value int, rule string) *Error {
	return &Error{
		Type:    ErrTypeValueOutOfRange,
		Field:   field,
		Message: fmt.Sprintf("%d is out of range (%s)", value, rule),
	}
}

func isType(err error, t ErrorType) bool {
	var cfgErr *Error
	if errors.As(err, &cfgErr) {
		return cfgErr.Type == t
	}
	return false
}

// IsValueTooLongError checks if an error is a value-too-long error
func IsValueTooLongError(err error) bool {
	return isType(err, ErrTypeValueTooLong)
}

// IsUnknownParameterError checks if an error is an unknown-parameter error
func IsUnknownParameterError(err error) bool {
	return isType(err, ErrTypeUnknownParameter)
}

// IsTypeMismatchError checks if an error is a type-mismatch error
func IsTypeMismatchError(err error) bool {
	return isType(err, ErrTypeTypeMismatch)
}

// IsValueOutOfRangeError checks if an error is an out-of-range error
func IsValueOutOfRangeError(err error) bool {
	return isType(err, ErrTypeValueOutOfRange)
}
