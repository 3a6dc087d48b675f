package entity

const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// Winner sentinels. Client ids start at 1, so both values are safe.
const (
	WinnerNone = 0
	WinnerDraw = -1
)

const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// JoinRequest is one client's bid to become the opponent of a waiting session.
// Only the "at most one pending entry per requester" rule matters; the order
// the requests arrived in does not.
type JoinRequest struct {
	RequesterID int
	Status      string
}
