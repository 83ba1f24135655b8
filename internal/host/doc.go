// Package host adapts the mesh API to dynamically typed callers.
//
// The control server and the CLI receive arguments as decoded JSON or
// flag strings, the same way a scripting interpreter hands a native module
// untyped objects. Binding mirrors that interpreter surface:
//
//	active()                      -> bool
//	active(True)                  -> bool
//	config(ssid="home", channel=6)
//	config("channel")             -> 6
//	register_event_handler(fn)
//	register_event_handler(None)
//
// Type checks happen here: a non-string key or a wrong-typed keyword value
// is a meshconfig type-mismatch error, an unrecognized keyword is an
// unknown-parameter error, and a handler that is neither callable nor nil
// is an espmesh invalid-handler error. Values that pass are handed to the
// typed espmesh API, which does the length and range checks.
package host
