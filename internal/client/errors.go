package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/muurk/espmesh/internal/protocol"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a dial or request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHandshake indicates the server answered but refused the upgrade
	ErrTypeHandshake
	// ErrTypeClosed indicates the connection is gone
	ErrTypeClosed
	// ErrTypeRemote indicates the server rejected the request
	ErrTypeRemote
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHandshake:
		return "Handshake Error"
	case ErrTypeClosed:
		return "Connection Closed"
	case ErrTypeRemote:
		return "Remote Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a failure talking to a control server
type Error struct {
	Type      ErrorType
	Message   string
	Err       error
	Remote    *protocol.ErrorBody // set for ErrTypeRemote
	Retryable bool
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	if e.Remote != nil {
		return e.Remote
	}
	return e.Err
}

// ClassifyNetworkError maps a dial failure to an Error
func ClassifyNetworkError(err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, websocket.ErrBadHandshake) {
		return &Error{Type: ErrTypeHandshake, Message: "server refused the WebSocket upgrade", Err: err}
	}

	if os.IsTimeout(err) {
		return &Error{Type: ErrTypeTimeout, Message: "connection timed out", Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Type: ErrTypeDNS, Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &Error{Type: ErrTypeConnectionRefused, Message: "server refused connection", Err: err, Retryable: true}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &Error{Type: ErrTypeNetwork, Message: "host unreachable", Err: err, Retryable: true}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &Error{Type: ErrTypeNetwork, Message: "network unreachable", Err: err, Retryable: true}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err)
	}

	return &Error{Type: ErrTypeNetwork, Message: "network error occurred", Err: err, Retryable: true}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *Error {
	e := ClassifyNetworkError(err)
	if e == nil {
		return &Error{Type: ErrTypeNetwork, Message: message, Retryable: true}
	}
	e.Message = message + ": " + e.Message
	return e
}

// NewRemoteError wraps an error response from the server
func NewRemoteError(body *protocol.ErrorBody) *Error {
	return &Error{Type: ErrTypeRemote, Message: body.Error(), Remote: body}
}

// NewClosedError reports a call on a connection that has gone away
func NewClosedError(err error) *Error {
	return &Error{Type: ErrTypeClosed, Message: "connection closed", Err: err}
}

func isType(err error, t ErrorType) bool {
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Type == t
	}
	return false
}

// IsRemoteError reports whether the server rejected the request
func IsRemoteError(err error) bool {
	return isType(err, ErrTypeRemote)
}

// IsClosedError reports whether the connection was already gone
func IsClosedError(err error) bool {
	return isType(err, ErrTypeClosed)
}

// IsRetryable reports whether dialing again may succeed
func IsRetryable(err error) bool {
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Retryable
	}
	return false
}

// GetTroubleshootingHint returns a user-friendly hint for resolving err
func GetTroubleshootingHint(err error) string {
	var cErr *Error
	if !errors.As(err, &cErr) {
		return ""
	}

	switch cErr.Type {
	case ErrTypeTimeout:
		return "The control server did not answer in time. Check that it is running and reachable."
	case ErrTypeConnectionRefused:
		return "Nothing is listening at that address. Start one with 'espmesh serve' or run 'espmesh scan'."
	case ErrTypeDNS:
		return "The host name could not be resolved. Use an IP address or 'espmesh scan'."
	case ErrTypeHandshake:
		return "The server is not an espmesh control server, or the path is wrong (expected /ws)."
	case ErrTypeClosed:
		return "The server closed the connection. It may have been shut down."
	case ErrTypeRemote:
		if cErr.Remote != nil && cErr.Remote.Hint != "" {
			return cErr.Remote.Hint
		}
		return ""
	default:
		if strings.Contains(cErr.Message, "unreachable") {
			return "Check that you are on the same network as the control server."
		}
		return "Check network connectivity to the control server."
	}
}
