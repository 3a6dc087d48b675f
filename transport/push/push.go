// Package push defines the write side of a connected participant. The core
// registries carry connection handles opaquely; transports store values
// implementing Peer so that any of them can notify a client registered by
// another one (tcp and websocket participants share one directory).
package push

// Peer delivers one server-initiated event to a client. Implementations must
// be safe for concurrent use: notifications originate from other clients'
// goroutines. A Push never runs under any core lock.
type Peer interface {
	Push(event, text string) error
}
