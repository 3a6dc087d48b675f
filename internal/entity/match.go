package entity

import "time"

// MatchRecord is the archive entry written when a session finishes. It is
// telemetry about a completed game, not session state: live sessions never
// leave process memory.
type MatchRecord struct {
	ID         string    `json:"id"`
	SessionID  int       `json:"session_id"`
	CreatorID  int       `json:"creator_id"`
	OpponentID int       `json:"opponent_id"`
	WinnerID   int       `json:"winner_id,omitempty"`
	Draw       bool      `json:"draw,omitempty"`
	Forfeit    bool      `json:"forfeit,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
