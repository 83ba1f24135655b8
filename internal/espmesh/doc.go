// Package espmesh is the process-wide mesh object: its configuration, its
// activation lifecycle and the bridge that carries engine events to a user
// handler.
//
// # Singleton
//
// There is exactly one Mesh per process, reached through Get. The first
// call creates it from the supplied options (engine, topology, max layer,
// softAP auth mode); later calls return the same object. Reset deactivates
// and forgets the instance so that a restarted host environment starts
// from defaults. Shutdown deactivates whatever instance exists and is safe
// to call when none does.
//
//	m := espmesh.Get(espmesh.WithEngine(eng))
//	_ = m.Configure(meshconfig.Update{
//		SSID:     meshconfig.Ptr("home"),
//		Password: meshconfig.Ptr("secret"),
//		Channel:  meshconfig.Ptr(6),
//	})
//	if err := m.Activate(); err != nil {
//		fmt.Println(espmesh.GetTroubleshootingHint(err))
//	}
//	defer espmesh.Shutdown()
//
// # Lifecycle
//
// Activate checks that the router SSID, password and channel are set, then
// drives the engine through netif creation, radio start, mesh init,
// topology and power-save setup, and mesh start. The netif layer is only
// initialized the first time an engine is activated. Any engine failure is
// returned as an *Error of type ErrTypeEngine carrying the engine status;
// the mesh stays inactive and nothing is rolled back.
//
// Deactivate runs every teardown call even if some fail and never returns
// an error. Configuration changes made while active apply at the next
// activation.
//
// # Events
//
// The engine calls the bridge on its own goroutine for every mesh event.
// The bridge resolves the code to a symbolic name (unknown codes pass
// through as numbers) and, if a handler is registered, queues the handler
// call on a scheduler worker. With no handler the event is dropped. Event
// payloads are not forwarded.
//
// Clearing the handler affects events dispatched after the call; events
// already queued for the old handler are still delivered to it.
package espmesh
