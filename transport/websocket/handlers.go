package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pressplayinc/connectfour-backend/internal/apperror"
	"github.com/pressplayinc/connectfour-backend/internal/entity"
	"github.com/pressplayinc/connectfour-backend/internal/session"
)

func (that *Server) handleConnect(_ context.Context, clientID int, p *wsPeer, payload json.RawMessage) error {
	log := that.logger.With("method", "handleConnect", "client", clientID)

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if req.Username == "" {
		return that.sendErrorResponse(p, "connect", "username is required")
	}

	that.game.Clients().SetUsername(clientID, req.Username)
	username := that.game.Clients().Username(clientID)

	log.Info("client registered", "username", username)

	if err := p.writeMessage("connect", Response{
		Client: &ClientInfo{ID: clientID, Username: username},
	}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	that.notifyExcept(clientID, "notice", fmt.Sprintf("%s connected to the server", username))

	return nil
}

func (that *Server) handleCreate(_ context.Context, clientID int, p *wsPeer, _ json.RawMessage) error {
	if that.inActiveSession(clientID) {
		return that.sendErrorResponse(p, "session:create", "you are already in an active game")
	}

	snapshot, err := that.game.CreateSession(clientID)
	if err != nil {
		return that.sendErrorResponse(p, "session:create", describeError(err))
	}

	if err = p.writeMessage("session:create", Response{
		Session: that.sessionInfo(&snapshot),
	}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	username := that.game.Clients().Username(clientID)
	that.notifyExcept(clientID, "notice", fmt.Sprintf("%s created game #%d", username, snapshot.ID))

	return nil
}

func (that *Server) handleJoin(_ context.Context, clientID int, p *wsPeer, payload json.RawMessage) error {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if req.Session == nil {
		return that.sendErrorResponse(p, "session:join", "session is required")
	}

	if that.inActiveSession(clientID) {
		return that.sendErrorResponse(p, "session:join", "you are already in an active game")
	}

	if err := that.game.RequestJoin(*req.Session, clientID); err != nil {
		return that.sendErrorResponse(p, "session:join", describeError(err))
	}

	if err := p.writeMessage("session:join", Response{
		Message: fmt.Sprintf("join request sent for game #%d", *req.Session),
	}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	snapshot, err := that.game.SessionSnapshot(*req.Session)
	if err != nil {
		return nil
	}

	username := that.game.Clients().Username(clientID)
	that.notifyClient(snapshot.CreatorID, "session:request",
		fmt.Sprintf("%s wants to join your game #%d", username, snapshot.ID))

	return nil
}

func (that *Server) handleRequests(_ context.Context, clientID int, p *wsPeer, _ json.RawMessage) error {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		return that.sendErrorResponse(p, "session:requests", "you have not created any game")
	}

	pending, err := that.game.PendingRequests(client.SessionID, clientID)
	if err != nil {
		return that.sendErrorResponse(p, "session:requests", describeError(err))
	}

	usernames := make([]string, 0, len(pending))
	for _, req := range pending {
		usernames = append(usernames, that.game.Clients().Username(req.RequesterID))
	}

	if err = p.writeMessage("session:requests", Response{Requests: usernames}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	return nil
}

func (that *Server) handleAccept(ctx context.Context, clientID int, p *wsPeer, payload json.RawMessage) error {
	return that.decide(ctx, clientID, p, payload, true)
}

func (that *Server) handleReject(ctx context.Context, clientID int, p *wsPeer, payload json.RawMessage) error {
	return that.decide(ctx, clientID, p, payload, false)
}

func (that *Server) decide(_ context.Context, clientID int, p *wsPeer, payload json.RawMessage, accept bool) error {
	action := "session:reject"
	if accept {
		action = "session:accept"
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if req.Username == "" {
		return that.sendErrorResponse(p, action, "username is required")
	}

	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		return that.sendErrorResponse(p, action, "you don't have an active game")
	}

	requester, ok := that.game.Clients().LookupByUsername(req.Username)
	if !ok {
		return that.sendErrorResponse(p, action, fmt.Sprintf("player %q not found", req.Username))
	}

	if err = that.game.Decide(client.SessionID, clientID, requester.ID, accept); err != nil {
		return that.sendErrorResponse(p, action, describeError(err))
	}

	if !accept {
		that.notifyClient(requester.ID, "session:rejected",
			fmt.Sprintf("%s rejected your request for game #%d", client.Username, client.SessionID))

		if err = p.writeMessage(action, Response{
			Message: fmt.Sprintf("rejected %s's request", req.Username),
		}); err != nil {
			return fmt.Errorf("failed to send response: %w", err)
		}

		return nil
	}

	snapshot, err := that.game.SessionSnapshot(client.SessionID)
	if err != nil {
		return nil
	}

	if err = p.writeMessage(action, Response{
		Session: that.sessionInfo(&snapshot),
	}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	that.notifyClient(requester.ID, "session:started",
		fmt.Sprintf("%s accepted your request, game #%d has started", client.Username, snapshot.ID))

	return nil
}

func (that *Server) handleMove(ctx context.Context, clientID int, p *wsPeer, payload json.RawMessage) error {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if req.Column == nil {
		return that.sendErrorResponse(p, "session:move", "column is required")
	}

	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		return that.sendErrorResponse(p, "session:move", "you are not in any game")
	}

	result, err := that.game.Move(ctx, client.SessionID, clientID, *req.Column)
	if err != nil {
		return that.sendErrorResponse(p, "session:move", describeError(err))
	}

	if err = p.writeMessage("session:move", Response{
		Move: &MoveInfo{
			Row:      result.Row,
			Column:   result.Column,
			Piece:    result.Piece,
			NextTurn: result.NextTurn,
		},
		Session: moveSessionInfo(client.SessionID, &result),
	}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	opponentID := result.OpponentID
	if clientID == result.OpponentID {
		opponentID = result.CreatorID
	}

	switch {
	case result.IsWin():
		that.notifyClient(opponentID, "session:over",
			fmt.Sprintf("%s connected four, you lost game #%d", client.Username, client.SessionID))
	case result.IsDraw():
		that.notifyClient(opponentID, "session:over",
			fmt.Sprintf("game #%d ended in a draw", client.SessionID))
	default:
		that.notifyClient(opponentID, "session:turn",
			fmt.Sprintf("%s played column %d, it's your turn", client.Username, result.Column))
	}

	return nil
}

func (that *Server) handleLeave(ctx context.Context, clientID int, p *wsPeer, _ json.RawMessage) error {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		return that.sendErrorResponse(p, "session:leave", "you are not in any game")
	}

	result, err := that.game.Leave(ctx, clientID)
	if err != nil {
		return that.sendErrorResponse(p, "session:leave", describeError(err))
	}

	if err = p.writeMessage("session:leave", Response{
		Message: fmt.Sprintf("you left game #%d", result.SessionID),
	}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	if result.Forfeit {
		that.notifyClient(result.ForfeitWinnerID, "session:over",
			fmt.Sprintf("%s left the game, you win by forfeit", client.Username))
	}

	return nil
}

func (that *Server) handleRematch(_ context.Context, clientID int, p *wsPeer, _ json.RawMessage) error {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		return that.sendErrorResponse(p, "session:rematch", "you are not in any game")
	}

	result, err := that.game.Rematch(client.SessionID, clientID)
	if err != nil {
		return that.sendErrorResponse(p, "session:rematch", describeError(err))
	}

	snapshot, err := that.game.SessionSnapshot(result.SessionID)
	if err != nil {
		return nil
	}

	if err = p.writeMessage("session:rematch", Response{
		Session: that.sessionInfo(&snapshot),
	}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	opponentID := result.OpponentID
	if clientID != result.CreatorID {
		opponentID = result.CreatorID
	}

	that.notifyClient(opponentID, "session:rematch",
		fmt.Sprintf("%s started a rematch in game #%d", client.Username, result.SessionID))

	return nil
}

func (that *Server) handleList(_ context.Context, _ int, p *wsPeer, _ json.RawMessage) error {
	overviews := that.game.ListSessions()

	sessions := make([]SessionInfo, 0, len(overviews))
	for _, overview := range overviews {
		sessions = append(sessions, SessionInfo{
			ID:      overview.ID,
			State:   overview.State,
			Creator: that.game.Clients().Username(overview.CreatorID),
		})
	}

	if err := p.writeMessage("session:list", Response{Sessions: sessions}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	return nil
}

func (that *Server) handleStatus(_ context.Context, clientID int, p *wsPeer, _ json.RawMessage) error {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil {
		return that.sendErrorResponse(p, "session:status", "client not found")
	}

	resp := Response{
		Client: &ClientInfo{ID: client.ID, Username: client.Username},
	}

	if client.InSession() {
		if snapshot, snapErr := that.game.SessionSnapshot(client.SessionID); snapErr == nil {
			resp.Session = that.sessionInfo(&snapshot)
		}
	}

	if err = p.writeMessage("session:status", resp); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	return nil
}

// inActiveSession - true when the client references a session that is not
// finished, in which case create and join are refused. Without the guard a
// mid-game client could repoint its directory entry at a fresh session and
// strand the opponent in a game nobody can reach anymore.
func (that *Server) inActiveSession(clientID int) bool {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		return false
	}

	snapshot, err := that.game.SessionSnapshot(client.SessionID)
	if err != nil {
		return false
	}

	return snapshot.State != entity.StatusFinished
}

func (that *Server) sessionInfo(snapshot *session.Snapshot) *SessionInfo {
	return &SessionInfo{
		ID:          snapshot.ID,
		State:       snapshot.State,
		Creator:     that.game.Clients().Username(snapshot.CreatorID),
		Opponent:    opponentName(that.game, snapshot.OpponentID),
		CurrentTurn: snapshot.CurrentTurn,
		Winner:      snapshot.WinnerID,
		Board:       boardRows(snapshot.Board),
	}
}

// moveSessionInfo builds the post-move view from the move result alone, so
// the session is not re-read after its lock was released.
func moveSessionInfo(sessionID int, result *session.MoveResult) *SessionInfo {
	return &SessionInfo{
		ID:          sessionID,
		State:       result.State,
		CurrentTurn: result.NextTurn,
		Winner:      result.WinnerID,
		Board:       boardRows(result.Board),
	}
}

func opponentName(game gamePlay, opponentID int) string {
	if opponentID == 0 {
		return ""
	}

	return game.Clients().Username(opponentID)
}

func boardRows(cells [entity.GridRows][entity.GridCols]string) [][]string {
	rows := make([][]string, entity.GridRows)
	for r := 0; r < entity.GridRows; r++ {
		rows[r] = make([]string, entity.GridCols)
		copy(rows[r], cells[r][:])
	}

	return rows
}

func describeError(err error) string {
	switch {
	case errors.Is(err, apperror.ErrServerFull):
		return "server is full"
	case errors.Is(err, apperror.ErrSessionNotFound):
		return "game not found"
	case errors.Is(err, apperror.ErrNotWaiting):
		return "game is not waiting for players"
	case errors.Is(err, apperror.ErrSelfJoin):
		return "you cannot join your own game"
	case errors.Is(err, apperror.ErrDuplicateRequest):
		return "you have already sent a request for this game"
	case errors.Is(err, apperror.ErrRequestNotFound):
		return "request not found"
	case errors.Is(err, apperror.ErrNotCreator):
		return "you are not the creator of this game"
	case errors.Is(err, apperror.ErrNotInProgress):
		return "game is not in progress"
	case errors.Is(err, apperror.ErrNotYourTurn):
		return "it's not your turn"
	case errors.Is(err, apperror.ErrInvalidColumn):
		return "column is full or invalid"
	case errors.Is(err, apperror.ErrGameNotFinished):
		return "game must be finished to request a rematch"
	case errors.Is(err, apperror.ErrClientNotFound):
		return "client not found"
	default:
		return "internal error"
	}
}

func (that *Server) sendErrorResponse(p *wsPeer, action, errorMsg string) error {
	if err := p.writeMessage(action, Response{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}
