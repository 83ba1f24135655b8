// Package client is a WebSocket client for the espmesh control server.
//
// A Client multiplexes requests over one connection, matching responses to
// calls by request ID, and delivers pushed mesh events on a channel:
//
//	c := client.New("ws://192.168.4.2:8765/ws")
//	if err := c.Connect(ctx); err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.Subscribe(ctx, true); err != nil {
//		return err
//	}
//	for ev := range c.Events() {
//		fmt.Println(ev)
//	}
//
// Dial failures are classified into an *Error with a troubleshooting hint.
// Errors returned by the server keep their wire body in Error.Remote.
package client
