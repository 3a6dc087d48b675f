package websocket

import "encoding/json"

// Message is the envelope for every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request is what clients put in the payload of their frames. Fields are
// pointers where absence matters.
type Request struct {
	Username string `json:"username,omitempty"`
	Session  *int   `json:"session,omitempty"`
	Column   *int   `json:"column,omitempty"`
}

// Response is what the server puts in the payload of its frames.
type Response struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	Client   *ClientInfo   `json:"client,omitempty"`
	Session  *SessionInfo  `json:"session,omitempty"`
	Sessions []SessionInfo `json:"sessions,omitempty"`
	Requests []string      `json:"requests,omitempty"`
	Move     *MoveInfo     `json:"move,omitempty"`
}

type ClientInfo struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type SessionInfo struct {
	ID          int        `json:"id"`
	State       string     `json:"state"`
	Creator     string     `json:"creator"`
	Opponent    string     `json:"opponent,omitempty"`
	CurrentTurn int        `json:"current_turn,omitempty"`
	Winner      int        `json:"winner,omitempty"`
	Board       [][]string `json:"board,omitempty"`
}

type MoveInfo struct {
	Row      int    `json:"row"`
	Column   int    `json:"column"`
	Piece    string `json:"piece"`
	NextTurn int    `json:"next_turn,omitempty"`
}
