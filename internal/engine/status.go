package engine

import (
	"errors"
	"fmt"
)

// Status is a numeric result code returned by the mesh engine. Zero means
// success; the remaining values follow the ESP-IDF esp_err_t numbering so
// codes reported by real firmware can be passed through unchanged.
type Status int32

const (
	OK              Status = 0
	ErrFail         Status = -1
	ErrNoMem        Status = 0x101
	ErrInvalidArg   Status = 0x102
	ErrInvalidState Status = 0x103
	ErrNotSupported Status = 0x106
	ErrTimeout      Status = 0x107

	ErrWifiNotInit    Status = 0x3001
	ErrWifiNotStarted Status = 0x3002
	ErrWifiNotStopped Status = 0x3003
	ErrWifiIF         Status = 0x3004
	ErrWifiMode       Status = 0x3005

	ErrMeshWifiNotStart Status = 0x4001
	ErrMeshNotInit      Status = 0x4002
	ErrMeshNotConfig    Status = 0x4003
	ErrMeshNotStart     Status = 0x4004
	ErrMeshNotSupport   Status = 0x4005
	ErrMeshNotAllowed   Status = 0x4006
	ErrMeshNoMemory     Status = 0x4007
	ErrMeshArgument     Status = 0x4008

	ErrNetifInitFailed Status = 0x5001
	ErrNetifInvalid    Status = 0x5002
)

var statusNames = map[Status]string{
	OK:                  "ESP_OK",
	ErrFail:             "ESP_FAIL",
	ErrNoMem:            "ESP_ERR_NO_MEM",
	ErrInvalidArg:       "ESP_ERR_INVALID_ARG",
	ErrInvalidState:     "ESP_ERR_INVALID_STATE",
	ErrNotSupported:     "ESP_ERR_NOT_SUPPORTED",
	ErrTimeout:          "ESP_ERR_TIMEOUT",
	ErrWifiNotInit:      "ESP_ERR_WIFI_NOT_INIT",
	ErrWifiNotStarted:   "ESP_ERR_WIFI_NOT_STARTED",
	ErrWifiNotStopped:   "ESP_ERR_WIFI_NOT_STOPPED",
	ErrWifiIF:           "ESP_ERR_WIFI_IF",
	ErrWifiMode:         "ESP_ERR_WIFI_MODE",
	ErrMeshWifiNotStart: "ESP_ERR_MESH_WIFI_NOT_START",
	ErrMeshNotInit:      "ESP_ERR_MESH_NOT_INIT",
	ErrMeshNotConfig:    "ESP_ERR_MESH_NOT_CONFIG",
	ErrMeshNotStart:     "ESP_ERR_MESH_NOT_START",
	ErrMeshNotSupport:   "ESP_ERR_MESH_NOT_SUPPORT",
	ErrMeshNotAllowed:   "ESP_ERR_MESH_NOT_ALLOWED",
	ErrMeshNoMemory:     "ESP_ERR_MESH_NO_MEMORY",
	ErrMeshArgument:     "ESP_ERR_MESH_ARGUMENT",
	ErrNetifInitFailed:  "ESP_ERR_ESP_NETIF_INIT_FAILED",
	ErrNetifInvalid:     "ESP_ERR_ESP_NETIF_INVALID_PARAMS",
}

// String returns the ESP-IDF style name of the status
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", int32(s))
}

// Err converts a status into an error for op. OK yields nil.
func (s Status) Err(op string) error {
	if s == OK {
		return nil
	}
	return &StatusError{Op: op, Status: s}
}

// StatusError is returned by Engine methods when the engine reports a
// non-OK status.
type StatusError struct {
	Op     string // Engine call that failed (e.g. "esp_mesh_start")
	Status Status // Raw status code
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %s (%d)", e.Op, e.Status, int32(e.Status))
}

// StatusOf extracts the engine status from err. It returns OK for nil and
// ErrFail for errors that do not carry a status.
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return ErrFail
}
