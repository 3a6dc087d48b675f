package session

import (
	"sync"

	"github.com/pressplayinc/connectfour-backend/internal/apperror"
	"github.com/pressplayinc/connectfour-backend/internal/entity"
)

// clientDirectory is the slice of the client registry the state machine needs.
// Lock order is fixed everywhere: a session's lock is taken first and the
// directory lock second, never the other way around.
type clientDirectory interface {
	SetCurrentSession(id, sessionID int)
	ClearSessionRefs(sessionID int)
}

// Session is one match between two participants. Every mutating operation
// takes the session lock for its whole duration, computes a result struct,
// and returns it after release; callers act only on that snapshot and never
// re-read session state once the lock is gone.
type Session struct {
	mu sync.Mutex

	id          int
	board       *entity.Board
	state       string
	creatorID   int
	opponentID  int
	currentTurn int
	winnerID    int
	requests    []entity.JoinRequest
}

func newSession(id, creatorID int) *Session {
	return &Session{
		id:          id,
		board:       entity.NewBoard(),
		state:       entity.StatusWaiting,
		creatorID:   creatorID,
		opponentID:  0,
		currentTurn: creatorID,
		winnerID:    entity.WinnerNone,
	}
}

// ID - immutable after creation.
func (that *Session) ID() int {
	return that.id
}

// Snapshot is a consistent copy of a session's observable state.
type Snapshot struct {
	ID          int
	State       string
	CreatorID   int
	OpponentID  int
	CurrentTurn int
	WinnerID    int
	Board       [entity.GridRows][entity.GridCols]string
}

// IsParticipant - true when the client plays in this session.
func (that *Snapshot) IsParticipant(clientID int) bool {
	return clientID == that.CreatorID || (that.OpponentID != 0 && clientID == that.OpponentID)
}

// Snapshot - copies the whole observable state under the lock.
func (that *Session) Snapshot() Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshotLocked()
}

func (that *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          that.id,
		State:       that.state,
		CreatorID:   that.creatorID,
		OpponentID:  that.opponentID,
		CurrentTurn: that.currentTurn,
		WinnerID:    that.winnerID,
		Board:       that.board.Cells(),
	}
}

// RequestJoin - files a pending join request. The creator can never join
// their own session, whatever state it is in. Beyond that, requests are only
// allowed while the session waits for an opponent, and a requester may have
// at most one pending request at a time. A previously rejected request does
// not block a new one.
func (that *Session) RequestJoin(requesterID int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if requesterID == that.creatorID {
		return apperror.ErrSelfJoin
	}

	if that.state != entity.StatusWaiting {
		return apperror.ErrNotWaiting
	}

	for _, req := range that.requests {
		if req.RequesterID == requesterID && req.Status == entity.RequestPending {
			return apperror.ErrDuplicateRequest
		}
	}

	that.requests = append(that.requests, entity.JoinRequest{
		RequesterID: requesterID,
		Status:      entity.RequestPending,
	})

	return nil
}

// PendingRequests - copies of the requests still awaiting a decision.
func (that *Session) PendingRequests() []entity.JoinRequest {
	that.mu.Lock()
	defer that.mu.Unlock()

	pending := make([]entity.JoinRequest, 0, len(that.requests))
	for _, req := range that.requests {
		if req.Status == entity.RequestPending {
			pending = append(pending, req)
		}
	}

	return pending
}

// Decide - accepts or rejects a pending join request. Only the creator may
// decide, and only while the session is waiting. Accepting seats the requester
// as opponent, starts the game with the creator to move, and points the
// opponent's directory entry at this session (session lock held, directory
// lock taken second). Rejecting changes nothing but the request's status.
func (that *Session) Decide(actorID, requesterID int, accept bool, clients clientDirectory) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if actorID != that.creatorID {
		return apperror.ErrNotCreator
	}

	if that.state != entity.StatusWaiting {
		return apperror.ErrNotWaiting
	}

	for i := range that.requests {
		req := &that.requests[i]
		if req.RequesterID != requesterID || req.Status != entity.RequestPending {
			continue
		}

		if !accept {
			req.Status = entity.RequestRejected
			return nil
		}

		req.Status = entity.RequestAccepted
		that.opponentID = requesterID
		that.state = entity.StatusInProgress
		that.currentTurn = that.creatorID

		clients.SetCurrentSession(requesterID, that.id)

		return nil
	}

	return apperror.ErrRequestNotFound
}

// MoveResult is everything a caller may act on after a successful move. It
// carries the participant ids so callers never have to re-read the session
// once the lock is released.
type MoveResult struct {
	Row      int
	Column   int
	Piece    string
	PlayerID int

	CreatorID  int
	OpponentID int

	// State is the session state after the move; WinnerID and NextTurn are
	// only meaningful for finished and continuing games respectively.
	State    string
	WinnerID int
	NextTurn int

	Board [entity.GridRows][entity.GridCols]string
}

// IsWin - the mover connected four.
func (that *MoveResult) IsWin() bool {
	return that.State == entity.StatusFinished && that.WinnerID == that.PlayerID
}

// IsDraw - the grid filled with no winner.
func (that *MoveResult) IsDraw() bool {
	return that.State == entity.StatusFinished && that.WinnerID == entity.WinnerDraw
}

// Move - drops the mover's piece in the column. The creator plays PieceA, the
// opponent PieceB. A full or out-of-range column rejects the move and leaves
// every cell untouched; otherwise the session either finishes (win or draw) or
// the turn passes to the other participant.
func (that *Session) Move(playerID, column int) (MoveResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != entity.StatusInProgress {
		return MoveResult{}, apperror.ErrNotInProgress
	}

	if that.currentTurn != playerID {
		return MoveResult{}, apperror.ErrNotYourTurn
	}

	piece := entity.PieceB
	if playerID == that.creatorID {
		piece = entity.PieceA
	}

	row := that.board.Drop(column, piece)
	if row < 0 {
		return MoveResult{}, apperror.ErrInvalidColumn
	}

	switch {
	case that.board.HasRun(piece):
		that.winnerID = playerID
		that.state = entity.StatusFinished
	case that.board.IsFull():
		that.winnerID = entity.WinnerDraw
		that.state = entity.StatusFinished
	default:
		that.currentTurn = that.otherParticipant(playerID)
	}

	return MoveResult{
		Row:        row,
		Column:     column,
		Piece:      piece,
		PlayerID:   playerID,
		CreatorID:  that.creatorID,
		OpponentID: that.opponentID,
		State:      that.state,
		WinnerID:   that.winnerID,
		NextTurn:   that.currentTurn,
		Board:      that.board.Cells(),
	}, nil
}

// LeaveResult tells the caller what leaving did and whether the session is now
// eligible for reclamation. State is the post-transition state; the caller
// must decide on cleanup from this value alone.
type LeaveResult struct {
	SessionID  int
	CreatorID  int
	OpponentID int

	State           string
	Forfeit         bool
	ForfeitWinnerID int
}

// Leave - a participant walks away. Mid-game this finishes the session with a
// forfeit win for the other participant; in any other state it only reports
// the current state so the caller can reclaim the slot.
func (that *Session) Leave(clientID int) LeaveResult {
	that.mu.Lock()
	defer that.mu.Unlock()

	result := LeaveResult{
		SessionID:  that.id,
		CreatorID:  that.creatorID,
		OpponentID: that.opponentID,
	}

	if that.state == entity.StatusInProgress && that.isParticipantLocked(clientID) {
		winner := that.otherParticipant(clientID)
		that.winnerID = winner
		that.state = entity.StatusFinished

		result.Forfeit = true
		result.ForfeitWinnerID = winner
	}

	result.State = that.state

	return result
}

// RematchResult describes the fresh game started by a rematch.
type RematchResult struct {
	SessionID  int
	CreatorID  int
	OpponentID int

	// FirstTurn is the toggle of whatever currentTurn held when the previous
	// game finished. That is not necessarily the loser.
	FirstTurn int
}

// Rematch - restarts a finished session between the same participants: fresh
// board, no winner, first move to the toggle of the last turn value.
func (that *Session) Rematch(requesterID int) (RematchResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != entity.StatusFinished {
		return RematchResult{}, apperror.ErrGameNotFinished
	}

	if !that.isParticipantLocked(requesterID) {
		return RematchResult{}, apperror.ErrNotCreator
	}

	that.board.Reset()
	that.winnerID = entity.WinnerNone
	that.state = entity.StatusInProgress
	that.currentTurn = that.otherParticipant(that.currentTurn)

	return RematchResult{
		SessionID:  that.id,
		CreatorID:  that.creatorID,
		OpponentID: that.opponentID,
		FirstTurn:  that.currentTurn,
	}, nil
}

func (that *Session) isParticipantLocked(clientID int) bool {
	return clientID == that.creatorID || (that.opponentID != 0 && clientID == that.opponentID)
}

func (that *Session) otherParticipant(clientID int) int {
	if clientID == that.creatorID {
		return that.opponentID
	}

	return that.creatorID
}

// discardRequests - drops all join requests; used by slot reclamation.
func (that *Session) discardRequests() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.requests = nil
}
