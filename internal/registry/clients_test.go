package registry

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressplayinc/connectfour-backend/internal/apperror"
	"github.com/pressplayinc/connectfour-backend/internal/entity"
)

func TestClients_Register(t *testing.T) {
	t.Run("Ids are monotonic and never reused", func(t *testing.T) {
		// Given: a directory with two registered clients
		clients := NewClients()

		first, err := clients.Register(nil, "10.0.0.1:1000")
		require.NoError(t, err)
		second, err := clients.Register(nil, "10.0.0.2:1000")
		require.NoError(t, err)

		assert.Equal(t, 1, first)
		assert.Equal(t, 2, second)

		// When: the first client leaves and a new one registers
		clients.Unregister(first)

		third, err := clients.Register(nil, "10.0.0.3:1000")
		require.NoError(t, err)

		// Then: the slot is reused but the retired id is not
		assert.Equal(t, 3, third)

		_, ok := clients.LookupByID(first)
		assert.False(t, ok)
	})

	t.Run("Refuses registration when all slots are taken", func(t *testing.T) {
		// Given: a directory filled to capacity
		clients := NewClients()
		for i := 0; i < MaxClients; i++ {
			_, err := clients.Register(nil, fmt.Sprintf("10.0.0.%d:1000", i))
			require.NoError(t, err)
		}

		// When: one more connection tries to register
		_, err := clients.Register(nil, "10.0.1.1:1000")

		// Then: it is turned away
		require.ErrorIs(t, err, apperror.ErrServerFull)

		// And: freeing any slot lets the next registration through
		clients.Unregister(1)
		id, err := clients.Register(nil, "10.0.1.1:1000")
		require.NoError(t, err)
		assert.Equal(t, MaxClients+1, id)
	})
}

func TestClients_SetUsername(t *testing.T) {
	t.Run("Name is immutable once set", func(t *testing.T) {
		clients := NewClients()
		id, err := clients.Register(nil, "10.0.0.1:1000")
		require.NoError(t, err)

		// When: setting the name twice
		clients.SetUsername(id, "alice")
		clients.SetUsername(id, "mallory")

		// Then: the second assignment is ignored
		assert.Equal(t, "alice", clients.Username(id))
	})

	t.Run("Overlong names are truncated", func(t *testing.T) {
		clients := NewClients()
		id, err := clients.Register(nil, "10.0.0.1:1000")
		require.NoError(t, err)

		clients.SetUsername(id, strings.Repeat("a", MaxUsername+10))

		assert.Len(t, clients.Username(id), MaxUsername)
	})

	t.Run("Truncation never splits a rune", func(t *testing.T) {
		clients := NewClients()
		id, err := clients.Register(nil, "10.0.0.1:1000")
		require.NoError(t, err)

		// 11 three-byte runes; a byte cut at 32 would land mid-rune
		clients.SetUsername(id, strings.Repeat("世", 11))

		name := clients.Username(id)
		assert.True(t, utf8.ValidString(name))
		assert.LessOrEqual(t, len(name), MaxUsername)
		assert.Equal(t, strings.Repeat("世", 10), name)
	})

	t.Run("Unknown ids resolve to a placeholder name", func(t *testing.T) {
		clients := NewClients()

		assert.Equal(t, "Unknown", clients.Username(42))
	})
}

func TestClients_LookupByUsername(t *testing.T) {
	// Given: two named clients
	clients := NewClients()

	aliceID, err := clients.Register(nil, "10.0.0.1:1000")
	require.NoError(t, err)
	clients.SetUsername(aliceID, "alice")

	bobID, err := clients.Register(nil, "10.0.0.2:1000")
	require.NoError(t, err)
	clients.SetUsername(bobID, "bob")

	// When: looking up by name
	client, ok := clients.LookupByUsername("bob")

	// Then: the matching client comes back as a value copy
	require.True(t, ok)
	assert.Equal(t, bobID, client.ID)

	_, ok = clients.LookupByUsername("nobody")
	assert.False(t, ok)
}

func TestClients_ForEachExcept(t *testing.T) {
	// Given: three clients
	clients := NewClients()

	ids := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		id, err := clients.Register(nil, fmt.Sprintf("10.0.0.%d:1000", i))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// When: visiting everyone but the second client
	visited := make([]int, 0, 2)
	clients.ForEachExcept(ids[1], func(client entity.Client) {
		visited = append(visited, client.ID)
	})

	// Then: the excluded client is skipped and the rest come in slot order
	assert.Equal(t, []int{ids[0], ids[2]}, visited)
}

func TestClients_SessionRefs(t *testing.T) {
	// Given: two clients attached to session 7
	clients := NewClients()

	first, err := clients.Register(nil, "10.0.0.1:1000")
	require.NoError(t, err)
	second, err := clients.Register(nil, "10.0.0.2:1000")
	require.NoError(t, err)

	clients.SetCurrentSession(first, 7)
	clients.SetCurrentSession(second, 7)

	// When: the session's references are cleared
	clients.ClearSessionRefs(7)

	// Then: both clients are detached
	for _, id := range []int{first, second} {
		client, ok := clients.LookupByID(id)
		require.True(t, ok)
		assert.False(t, client.InSession())
	}
}

func TestClients_Unregister(t *testing.T) {
	// Given: a registered client
	clients := NewClients()
	id, err := clients.Register(nil, "10.0.0.1:1000")
	require.NoError(t, err)

	// When: unregistering twice
	clients.Unregister(id)
	clients.Unregister(id)

	// Then: the second call is a no-op and the directory is empty
	assert.Empty(t, clients.Snapshot())
}
