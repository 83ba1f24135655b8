package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/meshconfig"
)

// Methods a client may call
const (
	MethodActive = "active"
	MethodConfig = "config"
	MethodEvents = "events"
	MethodStats  = "stats"
)

// MaxMessageSize bounds a single request
const MaxMessageSize = 8192

// Error type names carried in ErrorBody.Type
const (
	ErrorTypeValueTooLong     = "ValueTooLongError"
	ErrorTypeUnknownParameter = "UnknownParameterError"
	ErrorTypeTypeMismatch     = "TypeMismatchError"
	ErrorTypeValueOutOfRange  = "ValueOutOfRangeError"
	ErrorTypeConfiguration    = "ConfigurationError"
	ErrorTypeInvalidHandler   = "InvalidHandlerError"
	ErrorTypeEngine           = "EngineError"
	ErrorTypeProtocol         = "ProtocolError"
)

// Request is a call from a client
type Request struct {
	ID     int64          `json:"id"`
	Method string         `json:"method"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// ErrorBody describes a failed call
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int32  `json:"status,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// Error implements the error interface so a client can return the body
// as-is.
func (e *ErrorBody) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Response answers the Request with the same ID
type Response struct {
	ID     int64      `json:"id"`
	Result any        `json:"result"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// EventMessage is pushed to subscribed clients for every mesh event. Event
// is the symbolic name, or the raw code for unknown events.
type EventMessage struct {
	Event any `json:"event"`
}

// NewEventMessage builds the push message for ev
func NewEventMessage(ev espmesh.Event) *EventMessage {
	return &EventMessage{Event: ev.Value()}
}

var requestIDCounter atomic.Int64

// GenerateRequestID returns a process-unique, increasing request ID
func GenerateRequestID() int64 {
	return requestIDCounter.Add(1)
}

// NewRequest builds a request with a fresh ID
func NewRequest(method string, args []any, kwargs map[string]any) *Request {
	return &Request{
		ID:     GenerateRequestID(),
		Method: method,
		Args:   args,
		Kwargs: kwargs,
	}
}

// DecodeRequest parses and checks a client request
func DecodeRequest(data []byte) (*Request, error) {
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("request too large: %d bytes (max %d)", len(data), MaxMessageSize)
	}

	var req Request
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}
	if req.Method == "" {
		return &req, errors.New("request has no method")
	}
	return &req, nil
}

// ServerMessage is either a Response or an EventMessage, as decoded by a
// client. Exactly one field is set.
type ServerMessage struct {
	Response *Response
	Event    *EventMessage
}

// DecodeServerMessage parses a message received from the server. Numeric
// event codes are returned as int32.
func DecodeServerMessage(data []byte) (*ServerMessage, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("malformed server message: %w", err)
	}

	if raw, ok := probe["event"]; ok {
		ev, err := decodeEventValue(raw)
		if err != nil {
			return nil, err
		}
		return &ServerMessage{Event: &EventMessage{Event: ev}}, nil
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return &ServerMessage{Response: &resp}, nil
}

func decodeEventValue(raw json.RawMessage) (any, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name, nil
	}
	var code float64
	if err := json.Unmarshal(raw, &code); err != nil {
		return nil, fmt.Errorf("event is neither a name nor a code: %s", raw)
	}
	if code != math.Trunc(code) || code > math.MaxInt32 || code < math.MinInt32 {
		return nil, fmt.Errorf("event code out of range: %v", code)
	}
	return int32(code), nil
}

// Encode marshals any protocol message
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

// ErrorFromError maps an error from the mesh API onto its wire form
func ErrorFromError(err error) *ErrorBody {
	if err == nil {
		return nil
	}
	body := &ErrorBody{
		Type:    ErrorTypeProtocol,
		Message: err.Error(),
		Hint:    espmesh.GetTroubleshootingHint(err),
	}

	var cfgErr *meshconfig.Error
	var meshErr *espmesh.Error
	switch {
	case errors.As(err, &cfgErr):
		body.Field = cfgErr.Field
		switch cfgErr.Type {
		case meshconfig.ErrTypeValueTooLong:
			body.Type = ErrorTypeValueTooLong
		case meshconfig.ErrTypeUnknownParameter:
			body.Type = ErrorTypeUnknownParameter
		case meshconfig.ErrTypeTypeMismatch:
			body.Type = ErrorTypeTypeMismatch
		case meshconfig.ErrTypeValueOutOfRange:
			body.Type = ErrorTypeValueOutOfRange
		}
	case errors.As(err, &meshErr):
		switch meshErr.Type {
		case espmesh.ErrTypeConfiguration:
			body.Type = ErrorTypeConfiguration
			body.Field = meshErr.Field
		case espmesh.ErrTypeInvalidHandler:
			body.Type = ErrorTypeInvalidHandler
		case espmesh.ErrTypeEngine:
			body.Type = ErrorTypeEngine
			body.Status = int32(meshErr.Status)
		}
	}
	return body
}

// StatusName returns the engine status name for an engine error body
func (e *ErrorBody) StatusName() string {
	if e.Type != ErrorTypeEngine {
		return ""
	}
	return engine.Status(e.Status).String()
}
