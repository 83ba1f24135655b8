package espmesh

import "fmt"

// eventNames maps mesh event codes to their symbolic names; the index is
// the code.
var eventNames = [...]string{
	"MESH_EVENT_STARTED",
	"MESH_EVENT_STOPPED",
	"MESH_EVENT_CHANNEL_SWITCH",
	"MESH_EVENT_CHILD_CONNECTED",
	"MESH_EVENT_CHILD_DISCONNECTED",
	"MESH_EVENT_ROUTING_TABLE_ADD",
	"MESH_EVENT_ROUTING_TABLE_REMOVE",
	"MESH_EVENT_PARENT_CONNECTED",
	"MESH_EVENT_PARENT_DISCONNECTED",
	"MESH_EVENT_NO_PARENT_FOUND",
	"MESH_EVENT_LAYER_CHANGE",
	"MESH_EVENT_TODS_STATE",
	"MESH_EVENT_VOTE_STARTED",
	"MESH_EVENT_VOTE_STOPPED",
	"MESH_EVENT_ROOT_ADDRESS",
	"MESH_EVENT_ROOT_SWITCH_REQ",
	"MESH_EVENT_ROOT_SWITCH_ACK",
	"MESH_EVENT_ROOT_ASKED_YIELD",
	"MESH_EVENT_ROOT_FIXED",
	"MESH_EVENT_SCAN_DONE",
	"MESH_EVENT_NETWORK_STATE",
	"MESH_EVENT_STOP_RECONNECTION",
	"MESH_EVENT_FIND_NETWORK",
	"MESH_EVENT_ROUTER_SWITCH",
	"MESH_EVENT_PS_PARENT_DUTY",
	"MESH_EVENT_PS_CHILD_DUTY",
	"MESH_EVENT_PS_DEVICE_DUTY",
}

// Event is what a registered handler receives for every engine event.
// Codes inside the known table carry their symbolic Name; any other code is
// passed through with an empty Name.
type Event struct {
	Code int32
	Name string
}

// EventName resolves an engine event code
func EventName(code int32) Event {
	if code >= 0 && int(code) < len(eventNames) {
		return Event{Code: code, Name: eventNames[code]}
	}
	return Event{Code: code}
}

// EventNames returns the known event names in code order
func EventNames() []string {
	return append([]string(nil), eventNames[:]...)
}

// Known reports whether the code resolved to a symbolic name
func (e Event) Known() bool {
	return e.Name != ""
}

// Raw returns the engine event code
func (e Event) Raw() int32 {
	return e.Code
}

// Value is the host-facing form of the event: the symbolic name for known
// codes, the raw int32 code otherwise.
func (e Event) Value() any {
	if e.Known() {
		return e.Name
	}
	return e.Code
}

// String implements fmt.Stringer
func (e Event) String() string {
	if e.Known() {
		return e.Name
	}
	return fmt.Sprintf("%d", e.Code)
}

// EventFromValue is the inverse of Event.Value: it accepts a symbolic name
// or an int32 code. Names outside the table are rejected.
func EventFromValue(v any) (Event, error) {
	switch v := v.(type) {
	case int32:
		return EventName(v), nil
	case string:
		for code, name := range eventNames {
			if name == v {
				return Event{Code: int32(code), Name: name}, nil
			}
		}
		return Event{}, fmt.Errorf("unknown mesh event %q", v)
	default:
		return Event{}, fmt.Errorf("mesh event must be a name or int32 code, got %T", v)
	}
}
