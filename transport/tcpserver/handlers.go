package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressplayinc/connectfour-backend/internal/apperror"
	"github.com/pressplayinc/connectfour-backend/internal/entity"
	"github.com/pressplayinc/connectfour-backend/internal/session"
)

const helpText = `
Available commands:
  help              - Show this message
  list              - List available games
  status            - Current player status
  quit              - Disconnect from server

  create            - Create a new game
  join <id>         - Request to join game <id>
  requests          - View join requests
  accept <username> - Accept request from <username>
  reject <username> - Reject request from <username>
  leave             - Leave current game

  move <1-7>        - Drop piece in column 1-7
  grid              - Show game grid
  rematch           - Propose/accept rematch

`

func (that *Server) handleHelp(_ context.Context, _ int, p *peer, _ string) {
	_ = p.send(helpText)
}

func (that *Server) handleList(_ context.Context, _ int, p *peer, _ string) {
	overviews := that.game.ListSessions()
	if len(overviews) == 0 {
		_ = p.send("\nNo games available. Use 'create' to start one.\n\n")
		return
	}

	var builder strings.Builder
	builder.WriteString("\nGames:\n")
	for _, overview := range overviews {
		builder.WriteString(fmt.Sprintf("  Game #%-3d | Creator: %-12s | Status: %s\n",
			overview.ID, that.game.Clients().Username(overview.CreatorID), describeState(overview.State)))
	}
	builder.WriteString("\n")

	_ = p.send(builder.String())
}

func (that *Server) handleStatus(_ context.Context, clientID int, p *peer, _ string) {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil {
		return
	}

	if !client.InSession() {
		_ = p.send(fmt.Sprintf("\n[STATUS] Username: %s | You are not in any game.\n"+
			"         Use 'create' to create a game or 'join <id>' to join one.\n\n", client.Username))
		return
	}

	snapshot, err := that.game.SessionSnapshot(client.SessionID)
	if err != nil {
		_ = p.send(fmt.Sprintf("\n[STATUS] Username: %s | You are not in any game.\n\n", client.Username))
		return
	}

	state := describeState(snapshot.State)
	if snapshot.State == entity.StatusInProgress {
		if snapshot.CurrentTurn == clientID {
			state = "In progress - IT'S YOUR TURN!"
		} else {
			state = "In progress - Opponent's turn"
		}
	}

	_ = p.send(fmt.Sprintf("\n[STATUS] Username: %s | Game #%d | %s\n\n", client.Username, snapshot.ID, state))
}

func (that *Server) handleCreate(_ context.Context, clientID int, p *peer, _ string) {
	if that.inActiveSession(clientID) {
		_ = p.send("\n[ERROR] You are already in an active game. Use 'leave' first.\n\n")
		return
	}

	snapshot, err := that.game.CreateSession(clientID)
	if err != nil {
		_ = p.send("\n[ERROR] Cannot create game. Server is full.\n\n")
		return
	}

	_ = p.send(fmt.Sprintf("\n[OK] Game #%d created. Waiting for an opponent...\n"+
		"     Other players can join with: join %d\n     Use 'requests' to see join requests.\n\n",
		snapshot.ID, snapshot.ID))

	username := that.game.Clients().Username(clientID)
	that.notifyExcept(clientID, "notice",
		fmt.Sprintf("\n[NOTICE] %s created game #%d. Use 'join %d' to participate!\n\n", username, snapshot.ID, snapshot.ID))
}

func (that *Server) handleJoin(_ context.Context, clientID int, p *peer, arg string) {
	sessionID, err := strconv.Atoi(arg)
	if err != nil {
		_ = p.send("\n[ERROR] Usage: join <game_id>\n\n")
		return
	}

	if that.inActiveSession(clientID) {
		_ = p.send("\n[ERROR] You are already in an active game.\n\n")
		return
	}

	if err = that.game.RequestJoin(sessionID, clientID); err != nil {
		_ = p.send(renderError(err, sessionID))
		return
	}

	_ = p.send(fmt.Sprintf("\n[OK] Join request sent for game #%d.\n"+
		"     Waiting for the creator to accept your request...\n\n", sessionID))

	snapshot, err := that.game.SessionSnapshot(sessionID)
	if err != nil {
		return
	}

	username := that.game.Clients().Username(clientID)
	that.notifyClient(snapshot.CreatorID, "join_request",
		fmt.Sprintf("\n[REQUEST] %s wants to join your game #%d!\n"+
			"          Use 'accept %s' or 'reject %s'\n\n", username, sessionID, username, username))
}

func (that *Server) handleRequests(_ context.Context, clientID int, p *peer, _ string) {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		_ = p.send("\n[ERROR] You have not created any game.\n\n")
		return
	}

	pending, err := that.game.PendingRequests(client.SessionID, clientID)
	if err != nil {
		_ = p.send(renderError(err, client.SessionID))
		return
	}

	if len(pending) == 0 {
		_ = p.send("\nNo pending requests.\n\n")
		return
	}

	var builder strings.Builder
	builder.WriteString("\nJoin requests:\n")
	for _, req := range pending {
		builder.WriteString(fmt.Sprintf("  - %s (pending)\n", that.game.Clients().Username(req.RequesterID)))
	}
	builder.WriteString("\n")

	_ = p.send(builder.String())
}

func (that *Server) handleAccept(ctx context.Context, clientID int, p *peer, arg string) {
	that.decide(ctx, clientID, p, arg, true)
}

func (that *Server) handleReject(ctx context.Context, clientID int, p *peer, arg string) {
	that.decide(ctx, clientID, p, arg, false)
}

func (that *Server) decide(_ context.Context, clientID int, p *peer, username string, accept bool) {
	if username == "" {
		_ = p.send("\n[ERROR] Usage: accept <username> / reject <username>\n\n")
		return
	}

	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		_ = p.send("\n[ERROR] You don't have an active game.\n\n")
		return
	}

	requester, ok := that.game.Clients().LookupByUsername(username)
	if !ok {
		_ = p.send(fmt.Sprintf("\n[ERROR] Player '%s' not found.\n\n", username))
		return
	}

	if err = that.game.Decide(client.SessionID, clientID, requester.ID, accept); err != nil {
		_ = p.send(renderError(err, client.SessionID))
		return
	}

	if !accept {
		_ = p.send(fmt.Sprintf("\n[OK] You rejected %s's request.\n\n", username))
		that.notifyClient(requester.ID, "request_rejected",
			fmt.Sprintf("\n[NOTICE] %s rejected your request for game #%d.\n\n", client.Username, client.SessionID))
		return
	}

	snapshot, err := that.game.SessionSnapshot(client.SessionID)
	if err != nil {
		return
	}

	grid := renderGrid(snapshot.Board)

	_ = p.send(fmt.Sprintf("\nTHE GAME BEGINS!\nYou accepted %s into the game.\n"+
		"You play with: %s (first turn)\nUse 'move <1-7>' to make your move!\n%s",
		username, entity.PieceA, grid))

	that.notifyClient(requester.ID, "game_started",
		fmt.Sprintf("\nTHE GAME BEGINS!\n%s accepted your request!\n"+
			"You play with: %s\nWait for opponent's turn...\n%s", client.Username, entity.PieceB, grid))

	that.notifyExcept(clientID, "notice",
		fmt.Sprintf("\n[NOTICE] Game #%d between %s and %s has started!\n\n", snapshot.ID, client.Username, username))
}

func (that *Server) handleMove(ctx context.Context, clientID int, p *peer, arg string) {
	column, err := strconv.Atoi(arg)
	if err != nil || column < 1 || column > entity.GridCols {
		_ = p.send("\n[ERROR] Usage: move <1-7>\n\n")
		return
	}

	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		_ = p.send("\n[ERROR] You are not in any game.\n\n")
		return
	}

	// The wire protocol counts columns from 1, the core from 0.
	result, err := that.game.Move(ctx, client.SessionID, clientID, column-1)
	if err != nil {
		_ = p.send(renderError(err, client.SessionID))
		return
	}

	grid := renderGrid(result.Board)
	opponentID := result.OpponentID
	if clientID == result.OpponentID {
		opponentID = result.CreatorID
	}

	switch {
	case result.IsWin():
		_ = p.send(fmt.Sprintf("%s\nYOU WON! You connected 4 pieces!\nUse 'rematch' to propose a rematch.\n\n", grid))
		that.notifyClient(opponentID, "game_over",
			fmt.Sprintf("%s\nYOU LOST! %s connected 4 pieces.\nUse 'rematch' to accept a rematch.\n\n", grid, client.Username))
		that.notifyExcept(clientID, "notice",
			fmt.Sprintf("\n[NOTICE] Game #%d is over! Winner: %s\n\n", client.SessionID, client.Username))
	case result.IsDraw():
		text := fmt.Sprintf("%s\nDRAW! The grid is full, no winner.\nUse 'rematch' to propose/accept a rematch.\n\n", grid)
		_ = p.send(text)
		that.notifyClient(opponentID, "game_over", text)
	default:
		_ = p.send(fmt.Sprintf("%s\n[OK] Move made in column %d. Wait for opponent's turn...\n\n", grid, column))
		that.notifyClient(opponentID, "move",
			fmt.Sprintf("%s\n[TURN] %s played in column %d. It's your turn!\n"+
				"       Use 'move <1-7>' to make your move.\n\n", grid, client.Username, column))
	}
}

func (that *Server) handleGrid(_ context.Context, clientID int, p *peer, _ string) {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		_ = p.send("\n[ERROR] You are not in any game.\n\n")
		return
	}

	snapshot, err := that.game.SessionSnapshot(client.SessionID)
	if err != nil {
		_ = p.send("\n[ERROR] Game not found.\n\n")
		return
	}

	_ = p.send(renderGrid(snapshot.Board))

	if snapshot.State == entity.StatusInProgress {
		if snapshot.CurrentTurn == clientID {
			_ = p.send("[INFO] It's your turn! Use 'move <1-7>'.\n\n")
		} else {
			_ = p.send("[INFO] Wait for opponent's turn...\n\n")
		}
	}
}

func (that *Server) handleLeave(ctx context.Context, clientID int, p *peer, _ string) {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		_ = p.send("\n[ERROR] You are not in any game.\n\n")
		return
	}

	result, err := that.game.Leave(ctx, clientID)
	if err != nil {
		_ = p.send("\n[OK] You left the game.\n\n")
		return
	}

	_ = p.send(fmt.Sprintf("\n[OK] You left game #%d.\n\n", result.SessionID))

	if result.Forfeit {
		that.notifyForfeit(clientID, client.Username, result)
	}
}

func (that *Server) notifyForfeit(leaverID int, leaverName string, result session.LeaveResult) {
	that.notifyClient(result.ForfeitWinnerID, "game_over",
		fmt.Sprintf("\nYOU WON! %s left the game. Victory by forfeit.\n\n", leaverName))
	that.notifyExcept(leaverID, "notice",
		fmt.Sprintf("\n[NOTICE] Game #%d is over. %s left.\n\n", result.SessionID, leaverName))
}

func (that *Server) handleRematch(_ context.Context, clientID int, p *peer, _ string) {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil || !client.InSession() {
		_ = p.send("\n[ERROR] You are not in any game.\n\n")
		return
	}

	result, err := that.game.Rematch(client.SessionID, clientID)
	if err != nil {
		_ = p.send(renderError(err, client.SessionID))
		return
	}

	snapshot, err := that.game.SessionSnapshot(result.SessionID)
	if err != nil {
		return
	}

	grid := renderGrid(snapshot.Board)
	firstName := that.game.Clients().Username(result.FirstTurn)

	yourPiece, oppPiece := entity.PieceA, entity.PieceB
	opponentID := result.OpponentID
	if clientID != result.CreatorID {
		yourPiece, oppPiece = entity.PieceB, entity.PieceA
		opponentID = result.CreatorID
	}

	_ = p.send(fmt.Sprintf("\nREMATCH STARTED! The grid has been reset.\n"+
		"You play with: %s\nFirst turn: %s\n%s", yourPiece, firstName, grid))

	that.notifyClient(opponentID, "rematch",
		fmt.Sprintf("\nREMATCH STARTED! %s accepted the rematch!\n"+
			"You play with: %s\nFirst turn: %s\n%s", client.Username, oppPiece, firstName, grid))

	that.notifyExcept(clientID, "notice",
		fmt.Sprintf("\n[NOTICE] Rematch started in game #%d!\n\n", result.SessionID))
}

// inActiveSession - true when the client references a session that is not
// finished, in which case create/join are refused.
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

func renderError(err error, sessionID int) string {
	switch {
	case errors.Is(err, apperror.ErrSessionNotFound):
		return fmt.Sprintf("\n[ERROR] Game #%d not found.\n\n", sessionID)
	case errors.Is(err, apperror.ErrNotWaiting):
		return fmt.Sprintf("\n[ERROR] Game #%d is not waiting for players.\n\n", sessionID)
	case errors.Is(err, apperror.ErrSelfJoin):
		return "\n[ERROR] You cannot join your own game!\n\n"
	case errors.Is(err, apperror.ErrDuplicateRequest):
		return "\n[ERROR] You have already sent a request for this game.\n\n"
	case errors.Is(err, apperror.ErrRequestNotFound):
		return "\n[ERROR] Unable to process the request.\n\n"
	case errors.Is(err, apperror.ErrNotCreator):
		return "\n[ERROR] You are not the creator of this game.\n\n"
	case errors.Is(err, apperror.ErrNotInProgress):
		return "\n[ERROR] The game is not in progress.\n\n"
	case errors.Is(err, apperror.ErrNotYourTurn):
		return "\n[ERROR] It's not your turn!\n\n"
	case errors.Is(err, apperror.ErrInvalidColumn):
		return fmt.Sprintf("\n[ERROR] Column full or invalid. Choose a column from 1 to %d.\n\n", entity.GridCols)
	case errors.Is(err, apperror.ErrGameNotFinished):
		return "\n[ERROR] The game must be finished to request a rematch.\n\n"
	case errors.Is(err, apperror.ErrServerFull):
		return "\n[ERROR] Server is full.\n\n"
	default:
		return "\n[ERROR] Unknown error.\n\n"
	}
}
