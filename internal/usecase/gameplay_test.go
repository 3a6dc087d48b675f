package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressplayinc/connectfour-backend/internal/apperror"
	"github.com/pressplayinc/connectfour-backend/internal/entity"
	"github.com/pressplayinc/connectfour-backend/internal/registry"
	"github.com/pressplayinc/connectfour-backend/internal/session"
)

type stubArchive struct {
	records []*entity.MatchRecord
}

func (that *stubArchive) Save(_ context.Context, record *entity.MatchRecord) error {
	that.records = append(that.records, record)
	return nil
}

type fixture struct {
	game    *GamePlay
	clients *registry.Clients
	archive *stubArchive
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clients := registry.NewClients()
	archive := &stubArchive{}

	return &fixture{
		game:    NewGamePlay(logger, clients, session.NewRegistry(), archive),
		clients: clients,
		archive: archive,
	}
}

func (that *fixture) connect(t *testing.T, name string) int {
	t.Helper()

	id, err := that.clients.Register(nil, "10.0.0.1:1000")
	require.NoError(t, err)
	that.clients.SetUsername(id, name)

	return id
}

// startedGame registers two players and plays the negotiation through accept.
func startedGame(t *testing.T, f *fixture) (creator, opponent, sessionID int) {
	t.Helper()

	creator = f.connect(t, "alice")
	opponent = f.connect(t, "bob")

	snapshot, err := f.game.CreateSession(creator)
	require.NoError(t, err)
	sessionID = snapshot.ID

	require.NoError(t, f.game.RequestJoin(sessionID, opponent))
	require.NoError(t, f.game.Decide(sessionID, creator, opponent, true))

	return creator, opponent, sessionID
}

func TestGamePlay_CreateSession(t *testing.T) {
	t.Run("Connected clients can open a session", func(t *testing.T) {
		f := newFixture()
		creator := f.connect(t, "alice")

		snapshot, err := f.game.CreateSession(creator)

		require.NoError(t, err)
		assert.Equal(t, entity.StatusWaiting, snapshot.State)
		assert.Equal(t, creator, snapshot.CreatorID)

		// And: the creator's directory entry points at the new session
		client, err := f.game.ClientSnapshot(creator)
		require.NoError(t, err)
		assert.Equal(t, snapshot.ID, client.SessionID)
	})

	t.Run("Unknown clients cannot", func(t *testing.T) {
		f := newFixture()

		_, err := f.game.CreateSession(42)

		require.ErrorIs(t, err, apperror.ErrClientNotFound)
	})
}

func TestGamePlay_Negotiation(t *testing.T) {
	t.Run("Join request, accept, game starts", func(t *testing.T) {
		f := newFixture()

		_, opponent, sessionID := startedGame(t, f)

		snapshot, err := f.game.SessionSnapshot(sessionID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusInProgress, snapshot.State)

		client, err := f.game.ClientSnapshot(opponent)
		require.NoError(t, err)
		assert.Equal(t, sessionID, client.SessionID)
	})

	t.Run("Only the creator sees pending requests", func(t *testing.T) {
		f := newFixture()

		creator := f.connect(t, "alice")
		opponent := f.connect(t, "bob")

		snapshot, err := f.game.CreateSession(creator)
		require.NoError(t, err)
		require.NoError(t, f.game.RequestJoin(snapshot.ID, opponent))

		_, err = f.game.PendingRequests(snapshot.ID, opponent)
		require.ErrorIs(t, err, apperror.ErrNotCreator)

		pending, err := f.game.PendingRequests(snapshot.ID, creator)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, opponent, pending[0].RequesterID)
	})

	t.Run("Joining a dead session fails", func(t *testing.T) {
		f := newFixture()
		opponent := f.connect(t, "bob")

		err := f.game.RequestJoin(7, opponent)

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestGamePlay_Move(t *testing.T) {
	ctx := context.Background()

	t.Run("A winning move archives the match", func(t *testing.T) {
		// Given: a running game
		f := newFixture()
		creator, opponent, sessionID := startedGame(t, f)

		// When: the creator stacks four in one column
		for i := 0; i < 3; i++ {
			_, err := f.game.Move(ctx, sessionID, creator, 0)
			require.NoError(t, err)
			_, err = f.game.Move(ctx, sessionID, opponent, 1)
			require.NoError(t, err)
		}

		result, err := f.game.Move(ctx, sessionID, creator, 0)

		// Then: the game finishes and the archive holds one record
		require.NoError(t, err)
		assert.True(t, result.IsWin())

		require.Len(t, f.archive.records, 1)
		record := f.archive.records[0]
		assert.Equal(t, creator, record.WinnerID)
		assert.Equal(t, sessionID, record.SessionID)
		assert.False(t, record.Forfeit)
		assert.False(t, record.Draw)
		assert.NotEmpty(t, record.ID)
	})

	t.Run("Moving in an unknown session fails", func(t *testing.T) {
		f := newFixture()
		creator := f.connect(t, "alice")

		_, err := f.game.Move(ctx, 3, creator, 0)

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestGamePlay_Leave(t *testing.T) {
	ctx := context.Background()

	t.Run("Leaving mid-game forfeits and reclaims the slot", func(t *testing.T) {
		// Given: a running game
		f := newFixture()
		creator, opponent, sessionID := startedGame(t, f)

		// When: the creator walks away
		result, err := f.game.Leave(ctx, creator)

		// Then: the opponent wins by forfeit
		require.NoError(t, err)
		assert.True(t, result.Forfeit)
		assert.Equal(t, opponent, result.ForfeitWinnerID)

		// And: the match is archived as a forfeit
		require.Len(t, f.archive.records, 1)
		assert.True(t, f.archive.records[0].Forfeit)
		assert.Equal(t, opponent, f.archive.records[0].WinnerID)

		// And: the session slot is gone and both clients are detached
		_, err = f.game.SessionSnapshot(sessionID)
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)

		for _, id := range []int{creator, opponent} {
			client, snapErr := f.game.ClientSnapshot(id)
			require.NoError(t, snapErr)
			assert.False(t, client.InSession())
		}
	})

	t.Run("Abandoning a waiting session reclaims it without a forfeit", func(t *testing.T) {
		f := newFixture()
		creator := f.connect(t, "alice")

		snapshot, err := f.game.CreateSession(creator)
		require.NoError(t, err)

		result, err := f.game.Leave(ctx, creator)

		require.NoError(t, err)
		assert.False(t, result.Forfeit)
		assert.Empty(t, f.archive.records)

		_, err = f.game.SessionSnapshot(snapshot.ID)
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("Leaving without a session fails", func(t *testing.T) {
		f := newFixture()
		creator := f.connect(t, "alice")

		_, err := f.game.Leave(ctx, creator)

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestGamePlay_Rematch(t *testing.T) {
	ctx := context.Background()

	t.Run("A finished game restarts between the same players", func(t *testing.T) {
		// Given: a game the creator won
		f := newFixture()
		creator, opponent, sessionID := startedGame(t, f)

		for i := 0; i < 3; i++ {
			_, err := f.game.Move(ctx, sessionID, creator, 0)
			require.NoError(t, err)
			_, err = f.game.Move(ctx, sessionID, opponent, 1)
			require.NoError(t, err)
		}
		_, err := f.game.Move(ctx, sessionID, creator, 0)
		require.NoError(t, err)

		// When: the loser asks for a rematch
		result, err := f.game.Rematch(sessionID, opponent)

		// Then: a fresh game runs in the same slot with the loser to move
		require.NoError(t, err)
		assert.Equal(t, opponent, result.FirstTurn)

		snapshot, err := f.game.SessionSnapshot(sessionID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusInProgress, snapshot.State)
		assert.Equal(t, entity.WinnerNone, snapshot.WinnerID)
	})

	t.Run("Rematch of a running game fails", func(t *testing.T) {
		f := newFixture()
		creator, _, sessionID := startedGame(t, f)

		_, err := f.game.Rematch(sessionID, creator)

		require.ErrorIs(t, err, apperror.ErrGameNotFinished)
	})
}

func TestGamePlay_ListSessions(t *testing.T) {
	f := newFixture()

	creator := f.connect(t, "alice")
	other := f.connect(t, "bob")

	first, err := f.game.CreateSession(creator)
	require.NoError(t, err)
	_, err = f.game.CreateSession(other)
	require.NoError(t, err)

	overviews := f.game.ListSessions()

	require.Len(t, overviews, 2)
	assert.Equal(t, first.ID, overviews[0].ID)
	assert.Equal(t, creator, overviews[0].CreatorID)
}
