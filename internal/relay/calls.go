package relay

import (
	"context"
	"errors"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
)

type callNotificationData struct {
	From   int64  `json:"from"`
	To     int64  `json:"to"`
	RoomID string `json:"roomID"`
	CallID int64  `json:"call_id"`
}

type callSignalData struct {
	From   int64 `json:"from"`
	To     int64 `json:"to"`
	CallID int64 `json:"call_id,omitempty"`
}

// startCall records the attempt and rings the callee. The callback tells the
// caller whether the callee was online; ringing an offline callee is not an
// error, the caller's timeout turns it into a missed call.
func (r *Relay) startCall(ctx context.Context, kind models.CallKind, p callStartPayload) (interface{}, error) {
	rec, err := r.calls.Create(ctx, kind, p.From, p.To, p.RoomID)
	if err != nil {
		return nil, err
	}
	delivered := r.directory.Send(ctx, p.To, models.Event{
		Event: string(kind) + "_call_notification",
		Data:  callNotificationData{From: p.From, To: p.To, RoomID: p.RoomID, CallID: rec.ID},
	})
	observability.IncCallSignal(string(kind), "ringing")
	return map[string]interface{}{"call_id": rec.ID, "delivered": delivered}, nil
}

func (r *Relay) acceptCall(ctx context.Context, kind models.CallKind, p callSignalPayload) (interface{}, error) {
	return r.settleCall(ctx, kind, p, models.VerdictAccepted, false, string(kind)+"_call_accepted")
}

func (r *Relay) denyCall(ctx context.Context, kind models.CallKind, p callSignalPayload) (interface{}, error) {
	return r.settleCall(ctx, kind, p, models.VerdictDenied, true, string(kind)+"_call_denied")
}

func (r *Relay) missCall(ctx context.Context, kind models.CallKind, p callSignalPayload) (interface{}, error) {
	return r.settleCall(ctx, kind, p, models.VerdictMissed, true, string(kind)+"_call_missed")
}

func (r *Relay) busyCall(ctx context.Context, kind models.CallKind, p callSignalPayload) (interface{}, error) {
	return r.settleCall(ctx, kind, p, models.VerdictBusy, true, "on_another_"+string(kind)+"_call")
}

// endCall relays a hang-up peer-to-peer. The verdict was settled earlier, so
// the record is only closed, never rewritten; with no record at all the
// signal still goes through.
func (r *Relay) endCall(ctx context.Context, kind models.CallKind, p callSignalPayload) (interface{}, error) {
	rec, err := r.calls.End(ctx, kind, p.From, p.To)
	if err != nil && !errors.Is(err, repositories.ErrCallNotFound) {
		return nil, err
	}
	r.directory.Send(ctx, p.To, models.Event{
		Event: string(kind) + "_call_ended",
		Data:  callSignalData{From: p.From, To: p.To, CallID: rec.ID},
	})
	observability.IncCallSignal(string(kind), "ended")
	return nil, nil
}

func (r *Relay) getCallLogs(ctx context.Context, kind models.CallKind, p userPayload) (interface{}, error) {
	recs, err := r.calls.ListForUser(ctx, kind, p.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"calls": recs}, nil
}

// settleCall writes the verdict on the latest record for the pair and relays
// the signal to the peer. Competing verdicts resolve by arrival order: the
// last write wins, matching what both clients eventually display.
func (r *Relay) settleCall(ctx context.Context, kind models.CallKind, p callSignalPayload, verdict models.CallVerdict, ended bool, event string) (interface{}, error) {
	rec, err := r.calls.SetVerdict(ctx, kind, p.From, p.To, verdict, ended)
	if err != nil {
		return nil, err
	}
	r.directory.Send(ctx, p.To, models.Event{
		Event: event,
		Data:  callSignalData{From: p.From, To: p.To, CallID: rec.ID},
	})
	observability.IncCallSignal(string(kind), string(verdict))
	return map[string]interface{}{"call": rec}, nil
}
