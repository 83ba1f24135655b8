package espmesh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/meshconfig"
)

// ErrorType represents the category of a mesh controller error
type ErrorType int

const (
	// ErrTypeConfiguration indicates a required parameter is missing or invalid at activation
	ErrTypeConfiguration ErrorType = iota
	// ErrTypeInvalidHandler indicates an event handler that cannot be called
	ErrTypeInvalidHandler
	// ErrTypeEngine indicates the mesh engine rejected a lifecycle call
	ErrTypeEngine
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConfiguration:
		return "Configuration Error"
	case ErrTypeInvalidHandler:
		return "Invalid Handler"
	case ErrTypeEngine:
		return "Engine Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by the lifecycle and handler operations of Mesh
type Error struct {
	Type    ErrorType     // Category of error
	Message string        // Human-readable error message
	Field   string        // Config parameter at fault (configuration errors)
	Op      string        // Engine call that failed (engine errors)
	Status  engine.Status // Engine status code (engine errors)
	Err     error         // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Type == ErrTypeEngine {
		return fmt.Sprintf("%s: %s failed: %s (0x%x)", e.Type, e.Op, e.Status, int32(e.Status))
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates an error for a missing or invalid parameter
func NewConfigurationError(field, message string) *Error {
	return &Error{
		Type:    ErrTypeConfiguration,
		Field:   field,
		Message: message,
	}
}

// NewInvalidHandlerError creates an error for a value that cannot be used as
// an event handler.
func NewInvalidHandlerError(got any) *Error {
	return &Error{
		Type:    ErrTypeInvalidHandler,
		Message: fmt.Sprintf("handler must be callable or None, got %T", got),
	}
}

// NewEngineError wraps a failed engine call. The status is taken from err
// when it carries one.
func NewEngineError(op string, err error) *Error {
	return &Error{
		Type:    ErrTypeEngine,
		Message: err.Error(),
		Op:      op,
		Status:  engine.StatusOf(err),
		Err:     err,
	}
}

// IsConfigurationError checks if an error is a missing or invalid parameter
// at activation.
func IsConfigurationError(err error) bool {
	return isType(err, ErrTypeConfiguration)
}

// IsInvalidHandlerError checks if an error is a rejected event handler
func IsInvalidHandlerError(err error) bool {
	return isType(err, ErrTypeInvalidHandler)
}

// IsEngineError checks if an error is a failed engine call
func IsEngineError(err error) bool {
	return isType(err, ErrTypeEngine)
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// GetTroubleshootingHint returns a suggestion for resolving err, or an empty
// string if there is nothing useful to say.
func GetTroubleshootingHint(err error) string {
	var cfgErr *meshconfig.Error
	if errors.As(err, &cfgErr) {
		switch cfgErr.Type {
		case meshconfig.ErrTypeValueTooLong:
			return "Router SSIDs are limited to 31 bytes and passwords to 63 bytes."
		case meshconfig.ErrTypeUnknownParameter:
			return "Valid parameters: " + strings.Join(meshconfig.SettableKeys, ", ")
		case meshconfig.ErrTypeTypeMismatch:
			return "Parameter names are strings; ssid and passwords take strings, channel an integer, power_save a boolean."
		case meshconfig.ErrTypeValueOutOfRange:
			return "Use channel 0 to let the mesh scan, or the router's fixed channel (1-14)."
		}
	}

	var e *Error
	if !errors.As(err, &e) {
		return ""
	}

	switch e.Type {
	case ErrTypeConfiguration:
		if e.Field == meshconfig.KeyMaxLayer {
			return fmt.Sprintf("Tree topologies allow up to %d layers, chain topologies up to %d.",
				engine.MaxLayerTree, engine.MaxLayerChain)
		}
		return fmt.Sprintf("Set %s before activating, e.g. espmesh up --%s <value>.", e.Field, e.Field)
	case ErrTypeInvalidHandler:
		return "Pass a function taking one argument, or None to stop receiving events."
	case ErrTypeEngine:
		switch e.Status {
		case engine.ErrNoMem:
			return "The engine ran out of memory. Deactivate other network features and try again."
		case engine.ErrMeshNotConfig, engine.ErrMeshArgument:
			return "The engine rejected the mesh configuration. Check the channel and AP settings."
		case engine.ErrNetifInitFailed, engine.ErrNetifInvalid:
			return "The network interface layer failed. A full restart of the node is required."
		case engine.ErrWifiNotInit, engine.ErrMeshWifiNotStart:
			return "The radio is not running. Deactivate and activate the mesh again."
		}
		return fmt.Sprintf("The engine call %s failed. Deactivate the mesh and retry.", e.Op)
	}
	return ""
}
