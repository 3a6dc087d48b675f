package session

import (
	"sync"

	"github.com/pressplayinc/connectfour-backend/internal/apperror"
)

// MaxSessions is the fixed capacity of the session table.
const MaxSessions = 50

// Registry allocates session slots. The table lock only guards slot
// occupancy; it is never held together with a session lock or the client
// directory lock, so sessions never contend with each other through it.
type Registry struct {
	mu    sync.Mutex
	slots [MaxSessions]*Session
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create - claims the first free slot, seats a fresh waiting session in it and
// records the session on the creator's directory entry. Slot indices are the
// session ids; a slot freed by Cleanup is reused.
func (that *Registry) Create(creatorID int, clients clientDirectory) (*Session, error) {
	that.mu.Lock()

	id := -1
	for i := 0; i < MaxSessions; i++ {
		if that.slots[i] == nil {
			id = i
			break
		}
	}

	if id < 0 {
		that.mu.Unlock()
		return nil, apperror.ErrServerFull
	}

	sess := newSession(id, creatorID)
	that.slots[id] = sess
	that.mu.Unlock()

	clients.SetCurrentSession(creatorID, id)

	return sess, nil
}

// Get - the live session with this id, if any.
func (that *Registry) Get(id int) (*Session, bool) {
	if id < 0 || id >= MaxSessions {
		return nil, false
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	sess := that.slots[id]
	if sess == nil {
		return nil, false
	}

	return sess, true
}

// Cleanup - reclaims a session slot: the slot frees up for reuse, all join
// requests are discarded and every client referencing the session is
// detached. Irreversible; handles to the session are dead afterwards.
// Idempotent on already-freed ids.
func (that *Registry) Cleanup(id int, clients clientDirectory) {
	if id < 0 || id >= MaxSessions {
		return
	}

	that.mu.Lock()
	sess := that.slots[id]
	that.slots[id] = nil
	that.mu.Unlock()

	if sess == nil {
		return
	}

	sess.discardRequests()
	clients.ClearSessionRefs(id)
}

// Overview is one row of the session listing.
type Overview struct {
	ID        int
	CreatorID int
	State     string
}

// ListActive - a slot-order snapshot of the live sessions. Pointers are
// collected under the table lock and each session is then snapshotted under
// its own lock, so no two locks are ever held together.
func (that *Registry) ListActive() []Overview {
	that.mu.Lock()
	live := make([]*Session, 0, MaxSessions)
	for i := 0; i < MaxSessions; i++ {
		if that.slots[i] != nil {
			live = append(live, that.slots[i])
		}
	}
	that.mu.Unlock()

	overviews := make([]Overview, 0, len(live))
	for _, sess := range live {
		snapshot := sess.Snapshot()
		overviews = append(overviews, Overview{
			ID:        snapshot.ID,
			CreatorID: snapshot.CreatorID,
			State:     snapshot.State,
		})
	}

	return overviews
}
