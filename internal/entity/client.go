package entity

// NoSession marks a client that is not attached to any session.
const NoSession = -1

// Client is one connected participant. The record itself lives inside the
// client registry and is only ever touched under the registry lock; lookups
// hand out value copies, so a copy in a caller's hands is a snapshot.
type Client struct {
	ID        int
	Username  string
	Connected bool
	SessionID int
	Addr      string

	// Conn is the transport's connection handle. The core never touches it
	// beyond carrying it; only the owning transport knows its real type.
	Conn any
}

// InSession - true when the client currently references a session.
func (that *Client) InSession() bool {
	return that.SessionID != NoSession
}
