// Package server exposes the mesh singleton to remote clients over
// WebSocket.
//
// Each client sends JSON requests (see package protocol) as text messages
// and gets one response per request. A client that calls events(true) also
// receives every mesh event as {"event": ...}. Events reach the server
// through the mesh event handler, so they are pushed from the scheduler
// goroutine and never from the engine's.
//
// A slow client never stalls event delivery: its per-client queue is
// bounded and events that do not fit are dropped for that client only.
//
// # Endpoints
//
//	/ws       WebSocket control endpoint
//	/healthz  plain-text liveness check
//
// # Usage Example
//
//	b := host.New(espmesh.Get())
//	srv, err := server.New(&server.Config{Port: 8765, Advertise: true, Instance: "gw"}, b)
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
package server
