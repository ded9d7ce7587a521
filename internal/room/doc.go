// Package room implements the in-memory room session engine: the registry of
// live rooms, the per-room actor that serializes all state mutation, the
// periodic sentiment snapshot scheduler, and the broadcast fan-out to attached
// websocket connections.
package room
