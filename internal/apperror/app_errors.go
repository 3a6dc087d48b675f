package apperror

import "errors"

var (
	ErrServerFull       = errors.New("server is full")
	ErrClientNotFound   = errors.New("client not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotWaiting       = errors.New("session is not waiting for players")
	ErrSelfJoin         = errors.New("cannot join your own session")
	ErrDuplicateRequest = errors.New("join request already pending")
	ErrRequestNotFound  = errors.New("join request not found")
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrInvalidColumn    = errors.New("column is full or invalid")
	ErrNotCreator       = errors.New("only the session creator can do that")
	ErrGameNotFinished  = errors.New("session is not finished yet")
)
