package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressplayinc/connectfour-backend/internal/apperror"
	"github.com/pressplayinc/connectfour-backend/internal/entity"
)

func TestRegistry_Create(t *testing.T) {
	t.Run("Slot indices are the session ids", func(t *testing.T) {
		// Given: an empty table
		dir := newStubDirectory()
		reg := NewRegistry()

		// When: two sessions are created
		first, err := reg.Create(creatorID, dir)
		require.NoError(t, err)
		second, err := reg.Create(strangerID, dir)
		require.NoError(t, err)

		// Then: they take the first two slots and the creators point at them
		assert.Equal(t, 0, first.ID())
		assert.Equal(t, 1, second.ID())
		assert.Equal(t, 0, dir.sessions[creatorID])
		assert.Equal(t, 1, dir.sessions[strangerID])
	})

	t.Run("Refuses creation when the table is full", func(t *testing.T) {
		dir := newStubDirectory()
		reg := NewRegistry()

		for i := 0; i < MaxSessions; i++ {
			_, err := reg.Create(creatorID, dir)
			require.NoError(t, err)
		}

		_, err := reg.Create(creatorID, dir)

		require.ErrorIs(t, err, apperror.ErrServerFull)
	})
}

func TestRegistry_Get(t *testing.T) {
	dir := newStubDirectory()
	reg := NewRegistry()

	sess, err := reg.Create(creatorID, dir)
	require.NoError(t, err)

	got, ok := reg.Get(sess.ID())
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = reg.Get(10)
	assert.False(t, ok)
	_, ok = reg.Get(-1)
	assert.False(t, ok)
	_, ok = reg.Get(MaxSessions)
	assert.False(t, ok)
}

func TestRegistry_Cleanup(t *testing.T) {
	// Given: a session with a pending join request
	dir := newStubDirectory()
	reg := NewRegistry()

	sess, err := reg.Create(creatorID, dir)
	require.NoError(t, err)
	require.NoError(t, sess.RequestJoin(opponentID))

	// When: the slot is reclaimed
	reg.Cleanup(sess.ID(), dir)

	// Then: the slot frees up, requests are discarded and clients detached
	_, ok := reg.Get(sess.ID())
	assert.False(t, ok)
	assert.Empty(t, sess.PendingRequests())
	assert.Equal(t, []int{sess.ID()}, dir.cleared)

	// And: the freed slot id is handed out again
	again, err := reg.Create(strangerID, dir)
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), again.ID())

	// Cleanup of an already-freed id is a no-op
	reg.Cleanup(99, dir)
}

func TestRegistry_ListActive(t *testing.T) {
	dir := newStubDirectory()
	reg := NewRegistry()

	first, err := reg.Create(creatorID, dir)
	require.NoError(t, err)
	_, err = reg.Create(strangerID, dir)
	require.NoError(t, err)

	reg.Cleanup(first.ID(), dir)

	overviews := reg.ListActive()

	require.Len(t, overviews, 1)
	assert.Equal(t, 1, overviews[0].ID)
	assert.Equal(t, strangerID, overviews[0].CreatorID)
	assert.Equal(t, entity.StatusWaiting, overviews[0].State)
}
