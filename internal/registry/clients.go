package registry

import (
	"sync"
	"unicode/utf8"

	"github.com/pressplayinc/connectfour-backend/internal/apperror"
	"github.com/pressplayinc/connectfour-backend/internal/entity"
)

const (
	// MaxClients is the fixed capacity of the client directory.
	MaxClients = 100

	// MaxUsername is the longest display name kept; anything longer is truncated.
	MaxUsername = 32
)

// Clients is the directory of connected participants: a fixed table of slots
// guarded by a single lock. A slot is reclaimed on unregister, but client ids
// are handed out from a monotonic counter and never reused for the lifetime
// of the process.
type Clients struct {
	mu     sync.Mutex
	slots  [MaxClients]entity.Client
	nextID int
}

func NewClients() *Clients {
	return &Clients{}
}

// Register - claims a free slot for a new connection and returns its client id.
func (that *Clients) Register(conn any, addr string) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	slot := -1
	for i := 0; i < MaxClients; i++ {
		if !that.slots[i].Connected {
			slot = i
			break
		}
	}

	if slot < 0 {
		return 0, apperror.ErrServerFull
	}

	that.nextID++

	that.slots[slot] = entity.Client{
		ID:        that.nextID,
		Connected: true,
		SessionID: entity.NoSession,
		Addr:      addr,
		Conn:      conn,
	}

	return that.nextID, nil
}

// SetUsername - one-time assignment of the display name. A second call for the
// same client is ignored; the name is immutable once set.
func (that *Clients) SetUsername(id int, name string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	client := that.lookup(id)
	if client == nil || client.Username != "" {
		return
	}

	client.Username = truncateName(name)
}

// LookupByID - returns a snapshot of the client with this id.
func (that *Clients) LookupByID(id int) (entity.Client, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	client := that.lookup(id)
	if client == nil {
		return entity.Client{}, false
	}

	return *client, true
}

// LookupByUsername - returns the first connected client with this name in slot
// order. Names are not unique; with duplicates the winner is unspecified.
func (that *Clients) LookupByUsername(name string) (entity.Client, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for i := 0; i < MaxClients; i++ {
		if that.slots[i].Connected && that.slots[i].Username == name {
			return that.slots[i], true
		}
	}

	return entity.Client{}, false
}

// Username - display name for an id, "Unknown" once the client is gone.
func (that *Clients) Username(id int) string {
	client, ok := that.LookupByID(id)
	if !ok || client.Username == "" {
		return "Unknown"
	}

	return client.Username
}

// ForEachExcept - applies fn to every connected client other than exclude, in
// slot order. The recipient set is snapshotted under the lock and fn runs
// after release, so fn may block on network writes without stalling the
// directory. Pass a negative id to reach everyone.
func (that *Clients) ForEachExcept(exclude int, fn func(client entity.Client)) {
	that.mu.Lock()
	recipients := make([]entity.Client, 0, MaxClients)
	for i := 0; i < MaxClients; i++ {
		if that.slots[i].Connected && that.slots[i].ID != exclude {
			recipients = append(recipients, that.slots[i])
		}
	}
	that.mu.Unlock()

	for _, client := range recipients {
		fn(client)
	}
}

// SetCurrentSession - points a client at a session (entity.NoSession to clear).
// Called from session transitions, which hold the session lock first; the
// directory lock is always the inner one.
func (that *Clients) SetCurrentSession(id, sessionID int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if client := that.lookup(id); client != nil {
		client.SessionID = sessionID
	}
}

// ClearSessionRefs - detaches every client that references the session. Used
// when a session slot is reclaimed.
func (that *Clients) ClearSessionRefs(sessionID int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for i := 0; i < MaxClients; i++ {
		if that.slots[i].SessionID == sessionID {
			that.slots[i].SessionID = entity.NoSession
		}
	}
}

// Unregister - frees the client's slot. The id is retired, not reissued.
// Idempotent: unregistering an unknown or already-freed id does nothing.
func (that *Clients) Unregister(id int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if client := that.lookup(id); client != nil {
		client.Connected = false
		client.Conn = nil
	}
}

// Snapshot - value copies of all connected clients in slot order.
func (that *Clients) Snapshot() []entity.Client {
	that.mu.Lock()
	defer that.mu.Unlock()

	clients := make([]entity.Client, 0, MaxClients)
	for i := 0; i < MaxClients; i++ {
		if that.slots[i].Connected {
			clients = append(clients, that.slots[i])
		}
	}

	return clients
}

// truncateName - caps a display name at MaxUsername bytes without splitting a
// multi-byte rune, so a stored name is always valid UTF-8.
func truncateName(name string) string {
	if len(name) <= MaxUsername {
		return name
	}

	cut := MaxUsername
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}

	return name[:cut]
}

// lookup - pointer into the table; callers must hold the lock.
func (that *Clients) lookup(id int) *entity.Client {
	for i := 0; i < MaxClients; i++ {
		if that.slots[i].Connected && that.slots[i].ID == id {
			return &that.slots[i]
		}
	}

	return nil
}
