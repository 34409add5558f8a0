package models

import "time"

// CallKind distinguishes the two structurally identical signaling machines.
type CallKind string

const (
	CallAudio CallKind = "audio"
	CallVideo CallKind = "video"
)

// CallStatus is the lifecycle state of a call attempt.
type CallStatus string

const (
	CallOngoing CallStatus = "ongoing"
	CallEnded   CallStatus = "ended"
)

// CallVerdict is the outcome classification of a call attempt.
type CallVerdict string

const (
	VerdictUnset    CallVerdict = "unset"
	VerdictAccepted CallVerdict = "accepted"
	VerdictDenied   CallVerdict = "denied"
	VerdictMissed   CallVerdict = "missed"
	VerdictBusy     CallVerdict = "busy"
)

// CallRecord persists the verdict history of one call attempt between exactly
// two users. Records are never deleted; they form the call log.
type CallRecord struct {
	ID        int64       `db:"id" json:"id"`
	Kind      CallKind    `db:"kind" json:"kind"`
	CallerID  int64       `db:"caller_id" json:"from"`
	CalleeID  int64       `db:"callee_id" json:"to"`
	RoomID    string      `db:"room_id" json:"room_id"`
	Status    CallStatus  `db:"status" json:"status"`
	Verdict   CallVerdict `db:"verdict" json:"verdict"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	EndedAt   *time.Time  `db:"ended_at" json:"ended_at,omitempty"`
}
