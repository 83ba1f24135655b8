// Package engine defines the contract between the mesh controller and the
// self-organizing Wi-Fi mesh stack underneath it.
//
// The stack is treated as an opaque engine: the controller only drives its
// start/stop/configure calls in a fixed order and listens for events posted
// under the MeshEvent base. Every call returns nil or a *StatusError carrying
// an ESP-IDF style Status code, so firmware bindings can pass codes through
// unchanged.
//
// # Interfaces
//
//   - NetifLayer: process-wide network interface subsystem (init once)
//   - Radio: the Wi-Fi driver
//   - Mesh: topology, power save and configuration of the mesh stack
//   - Events: per-base handler registration
//
// # Simulator
//
// Sim implements Engine in-process. It enforces the ordering rules of the
// real stack, records every call, supports failure injection with FailOn,
// and dispatches events either on the caller's goroutine (Emit) or on its
// own script goroutine after MeshStart (WithScript). The espmesh CLI and the
// controller tests both run against it.
package engine
