package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrCallNotFound = errors.New("call record not found")

// CallRepository persists call attempts and their verdicts. Records are
// append-only history; verdict updates locate the latest record for the
// unordered participant pair.
type CallRepository interface {
	Create(ctx context.Context, kind models.CallKind, callerID, calleeID int64, roomID string) (models.CallRecord, error)
	SetVerdict(ctx context.Context, kind models.CallKind, userA, userB int64, verdict models.CallVerdict, ended bool) (models.CallRecord, error)
	End(ctx context.Context, kind models.CallKind, userA, userB int64) (models.CallRecord, error)
	ListForUser(ctx context.Context, kind models.CallKind, userID int64) ([]models.CallRecord, error)
}

// CallRepo is a sqlx implementation of CallRepository.
type CallRepo struct {
	db *sqlx.DB
}

// NewCallRepo constructs a CallRepo.
func NewCallRepo(db *sqlx.DB) *CallRepo {
	return &CallRepo{db: db}
}

const callColumns = `id, kind, caller_id, callee_id, room_id, status, verdict, created_at, ended_at`

// Create opens a call attempt: status ongoing, verdict unset.
func (r *CallRepo) Create(ctx context.Context, kind models.CallKind, callerID, calleeID int64, roomID string) (models.CallRecord, error) {
	var rec models.CallRecord
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO call_records (kind, caller_id, callee_id, room_id) VALUES ($1, $2, $3, $4) RETURNING `+callColumns,
		kind, callerID, calleeID, roomID,
	).StructScan(&rec)
	return rec, err
}

// SetVerdict updates the latest record for the unordered pair. Verdict races
// (accept vs deny vs timeout) resolve last-write-wins by arrival order; a
// stricter variant would add AND verdict='unset' to fence the transition out
// of ringing, at the cost of rejecting late verdict corrections.
func (r *CallRepo) SetVerdict(ctx context.Context, kind models.CallKind, userA, userB int64, verdict models.CallVerdict, ended bool) (models.CallRecord, error) {
	var rec models.CallRecord
	err := r.db.QueryRowxContext(ctx,
		`UPDATE call_records SET
            verdict=$1,
            status=CASE WHEN $2 THEN 'ended' ELSE status END,
            ended_at=CASE WHEN $2 THEN NOW() ELSE ended_at END
        WHERE id = (
            SELECT id FROM call_records
            WHERE kind=$3 AND ((caller_id=$4 AND callee_id=$5) OR (caller_id=$5 AND callee_id=$4))
            ORDER BY created_at DESC, id DESC LIMIT 1
        )
        RETURNING `+callColumns,
		verdict, ended, kind, userA, userB,
	).StructScan(&rec)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CallRecord{}, ErrCallNotFound
	}
	return rec, err
}

// End closes the latest record for the unordered pair without touching its
// verdict, so a hang-up after a denied or missed attempt cannot rewrite the
// call-log history.
func (r *CallRepo) End(ctx context.Context, kind models.CallKind, userA, userB int64) (models.CallRecord, error) {
	var rec models.CallRecord
	err := r.db.QueryRowxContext(ctx,
		`UPDATE call_records SET
            status='ended',
            ended_at=COALESCE(ended_at, NOW())
        WHERE id = (
            SELECT id FROM call_records
            WHERE kind=$1 AND ((caller_id=$2 AND callee_id=$3) OR (caller_id=$3 AND callee_id=$2))
            ORDER BY created_at DESC, id DESC LIMIT 1
        )
        RETURNING `+callColumns,
		kind, userA, userB,
	).StructScan(&rec)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CallRecord{}, ErrCallNotFound
	}
	return rec, err
}

// ListForUser returns the user's call log for one kind, newest first.
func (r *CallRepo) ListForUser(ctx context.Context, kind models.CallKind, userID int64) ([]models.CallRecord, error) {
	var recs []models.CallRecord
	err := r.db.SelectContext(ctx, &recs,
		`SELECT `+callColumns+` FROM call_records WHERE kind=$1 AND (caller_id=$2 OR callee_id=$2) ORDER BY created_at DESC`,
		kind, userID)
	return recs, err
}
