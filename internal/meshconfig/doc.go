// Package meshconfig holds the mutable mesh configuration.
//
// A Config carries the router credentials and channel the root node uses,
// the mesh softAP password and limits, the topology, and the power-save
// duty-cycle parameters. It is plain data with validation: nothing here ever
// touches the engine, and a running mesh is not reconfigured when a Config
// changes.
//
// # Updates
//
// Changes arrive as an Update with optional fields. Apply validates every
// supplied field before committing any of them:
//
//	err := cfg.Apply(meshconfig.Update{
//	    SSID:     meshconfig.Ptr("home-router"),
//	    Password: meshconfig.Ptr("secret"),
//	    Channel:  meshconfig.Ptr(6),
//	})
//
// Byte strings must fit their fixed capacity minus one byte for the
// terminator (SSID 31 bytes, passwords 63 bytes). Channel 0 means unset; no
// upper bound is checked here.
//
// # Errors
//
// All rejections are *Error values; use IsValueTooLongError,
// IsUnknownParameterError, IsTypeMismatchError and IsValueOutOfRangeError to
// classify them.
package meshconfig
