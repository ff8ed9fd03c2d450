// Package api provides the HTTP control surface and WebSocket event
// stream for the Roomcast hub.
//
// The HTTP API is the command trigger boundary: it validates the
// percentage input, reads the currently resolved room, encodes the
// command payload, and hands it to the publish dispatcher. It also
// exposes the resolved room, the command journal, and health and
// metrics endpoints.
//
// The WebSocket stream carries room-change events and dispatch
// outcomes to connected clients, replacing polling for the room label
// and send feedback.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
