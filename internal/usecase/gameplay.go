package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pressplayinc/connectfour-backend/internal/apperror"
	"github.com/pressplayinc/connectfour-backend/internal/entity"
	"github.com/pressplayinc/connectfour-backend/internal/registry"
	"github.com/pressplayinc/connectfour-backend/internal/session"
)

type matchArchive interface {
	Save(ctx context.Context, record *entity.MatchRecord) error
}

// GamePlay is the operation surface the dispatchers call into. Every method
// performs its state transition under the core locks, releases them, and
// returns a value snapshot; all outbound notification is the caller's job and
// happens strictly after return.
type GamePlay struct {
	logger *slog.Logger

	clients  *registry.Clients
	sessions *session.Registry
	archive  matchArchive
}

func NewGamePlay(logger *slog.Logger, clients *registry.Clients, sessions *session.Registry, archive matchArchive) *GamePlay {
	return &GamePlay{
		logger: logger,

		clients:  clients,
		sessions: sessions,
		archive:  archive,
	}
}

// Clients - the shared client directory, for transports that register and
// broadcast through it.
func (that *GamePlay) Clients() *registry.Clients {
	return that.clients
}

// CreateSession - opens a new waiting session owned by the client.
func (that *GamePlay) CreateSession(clientID int) (session.Snapshot, error) {
	if _, ok := that.clients.LookupByID(clientID); !ok {
		return session.Snapshot{}, apperror.ErrClientNotFound
	}

	sess, err := that.sessions.Create(clientID, that.clients)
	if err != nil {
		return session.Snapshot{}, err
	}

	that.logger.Info("session created", "session", sess.ID(), "creator", clientID)

	return sess.Snapshot(), nil
}

// RequestJoin - files the client's request to join a waiting session.
func (that *GamePlay) RequestJoin(sessionID, clientID int) error {
	sess, ok := that.sessions.Get(sessionID)
	if !ok {
		return apperror.ErrSessionNotFound
	}

	return sess.RequestJoin(clientID)
}

// PendingRequests - the undecided join requests of a session. Only the
// session's creator may inspect them.
func (that *GamePlay) PendingRequests(sessionID, actorID int) ([]entity.JoinRequest, error) {
	sess, ok := that.sessions.Get(sessionID)
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	if snapshot := sess.Snapshot(); snapshot.CreatorID != actorID {
		return nil, apperror.ErrNotCreator
	}

	return sess.PendingRequests(), nil
}

// Decide - the creator accepts or rejects a pending join request. Accepting
// starts the game with the creator to move.
func (that *GamePlay) Decide(sessionID, actorID, requesterID int, accept bool) error {
	sess, ok := that.sessions.Get(sessionID)
	if !ok {
		return apperror.ErrSessionNotFound
	}

	if err := sess.Decide(actorID, requesterID, accept, that.clients); err != nil {
		return err
	}

	if accept {
		that.logger.Info("session started", "session", sessionID, "creator", actorID, "opponent", requesterID)
	}

	return nil
}

// Move - drops the client's piece in the column (0-based). A finishing move
// archives the match after all locks are released.
func (that *GamePlay) Move(ctx context.Context, sessionID, clientID, column int) (session.MoveResult, error) {
	sess, ok := that.sessions.Get(sessionID)
	if !ok {
		return session.MoveResult{}, apperror.ErrSessionNotFound
	}

	result, err := sess.Move(clientID, column)
	if err != nil {
		return session.MoveResult{}, err
	}

	if result.State == entity.StatusFinished {
		that.archiveMatch(ctx, sessionID, result.CreatorID, result.OpponentID, result.WinnerID, false)
	}

	return result, nil
}

// Leave - detaches the client from its current session. Leaving a game in
// progress forfeits it to the other participant. Whenever the post-transition
// state is waiting or finished the session slot is reclaimed on the spot, so
// a forfeited game cannot be rematched.
func (that *GamePlay) Leave(ctx context.Context, clientID int) (session.LeaveResult, error) {
	client, ok := that.clients.LookupByID(clientID)
	if !ok {
		return session.LeaveResult{}, apperror.ErrClientNotFound
	}

	if !client.InSession() {
		return session.LeaveResult{}, apperror.ErrSessionNotFound
	}

	sess, ok := that.sessions.Get(client.SessionID)
	if !ok {
		// The slot was reclaimed under the client's feet; just detach.
		that.clients.SetCurrentSession(clientID, entity.NoSession)
		return session.LeaveResult{SessionID: client.SessionID}, nil
	}

	result := sess.Leave(clientID)
	that.clients.SetCurrentSession(clientID, entity.NoSession)

	if result.Forfeit {
		that.archiveMatch(ctx, result.SessionID, result.CreatorID, result.OpponentID, result.ForfeitWinnerID, true)
		that.logger.Info("session forfeited", "session", result.SessionID, "leaver", clientID, "winner", result.ForfeitWinnerID)
	}

	// Act on the snapshot only; the session must not be re-read here.
	if result.State == entity.StatusWaiting || result.State == entity.StatusFinished {
		that.sessions.Cleanup(result.SessionID, that.clients)
	}

	return result, nil
}

// Rematch - restarts a finished session between its participants.
func (that *GamePlay) Rematch(sessionID, clientID int) (session.RematchResult, error) {
	sess, ok := that.sessions.Get(sessionID)
	if !ok {
		return session.RematchResult{}, apperror.ErrSessionNotFound
	}

	result, err := sess.Rematch(clientID)
	if err != nil {
		return session.RematchResult{}, err
	}

	that.logger.Info("rematch started", "session", sessionID, "first_turn", result.FirstTurn)

	return result, nil
}

// ListSessions - slot-order overview of the live sessions.
func (that *GamePlay) ListSessions() []session.Overview {
	return that.sessions.ListActive()
}

// SessionSnapshot - the full observable state of one session.
func (that *GamePlay) SessionSnapshot(sessionID int) (session.Snapshot, error) {
	sess, ok := that.sessions.Get(sessionID)
	if !ok {
		return session.Snapshot{}, apperror.ErrSessionNotFound
	}

	return sess.Snapshot(), nil
}

// ClientSnapshot - the directory record of one connected client.
func (that *GamePlay) ClientSnapshot(clientID int) (entity.Client, error) {
	client, ok := that.clients.LookupByID(clientID)
	if !ok {
		return entity.Client{}, apperror.ErrClientNotFound
	}

	return client, nil
}

// archiveMatch - writes the finished game to the archive, built entirely from
// values the finishing operation returned. Failures are logged and never
// surfaced: gameplay does not depend on the archive being up.
func (that *GamePlay) archiveMatch(ctx context.Context, sessionID, creatorID, opponentID, winnerID int, forfeit bool) {
	log := that.logger.With("method", "archiveMatch", "session", sessionID)

	record := &entity.MatchRecord{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		CreatorID:  creatorID,
		OpponentID: opponentID,
		Forfeit:    forfeit,
		FinishedAt: time.Now().UTC(),
	}

	if winnerID == entity.WinnerDraw {
		record.Draw = true
	} else {
		record.WinnerID = winnerID
	}

	if err := that.archive.Save(ctx, record); err != nil {
		log.Error("failed to archive match", "error", err)
	}
}
