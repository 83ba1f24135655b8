// Package protocol implements the JSON control protocol spoken between the
// espmesh control server and its clients.
//
// Every WebSocket text message is one JSON object. Clients send requests,
// the server answers each with a response carrying the same id, and pushes
// events to clients that subscribed to them.
//
// # Requests
//
//	{"id": 1, "method": "config", "args": ["channel"], "kwargs": {"channel": 6}}
//
// Methods mirror the host binding:
//   - active: no args queries, one arg requests a state
//   - config: kwargs set parameters, an optional positional key is read back
//   - events: true subscribes, null or false unsubscribes
//   - stats: event bridge counters
//
// # Responses
//
//	{"id": 1, "result": 6}
//	{"id": 2, "result": null, "error": {"type": "ValueTooLongError", "field": "ssid", "message": "..."}}
//
// Error types are the names of the mesh error kinds: ValueTooLongError,
// UnknownParameterError, TypeMismatchError, ValueOutOfRangeError,
// ConfigurationError, InvalidHandlerError and EngineError. Engine errors also
// carry the numeric engine status. Anything else, such as an unknown method,
// is a ProtocolError.
//
// # Events
//
//	{"event": "MESH_EVENT_PARENT_CONNECTED"}
//	{"event": 9999}
//
// Unknown event codes are sent as numbers.
//
// # Thread Safety
//
// Encoding and decoding are stateless. Request ID generation uses an
// atomic counter.
package protocol
