package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// GroupMessageRepository defines interactions with a group's message log.
type GroupMessageRepository interface {
	Append(ctx context.Context, groupID int64, msg models.NewGroupMessage) (models.GroupMessage, error)
	List(ctx context.Context, groupID int64) ([]models.GroupMessage, error)
	Get(ctx context.Context, groupID, messageID int64) (models.GroupMessage, error)
	SetStarred(ctx context.Context, groupID, messageID int64, starred bool) (bool, error)
	Delete(ctx context.Context, groupID, messageID int64) error
}

// GroupMessageRepo is a sqlx-backed implementation.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

const groupMessageColumns = `id, group_id, sender_id, kind, body, file, reply, starred, forwarded, forwarded_from, created_at`

// Append pushes a message onto the group's log with a server-assigned id and
// timestamp.
func (r *GroupMessageRepo) Append(ctx context.Context, groupID int64, msg models.NewGroupMessage) (models.GroupMessage, error) {
	var stored models.GroupMessage
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO group_messages (group_id, sender_id, kind, body, file, reply, forwarded, forwarded_from)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+groupMessageColumns,
		groupID, msg.SenderID, msg.Kind, msg.Body, msg.File, msg.Reply, msg.Forwarded, msg.ForwardedFrom,
	).StructScan(&stored)
	return stored, err
}

// List returns the group's messages in log order.
func (r *GroupMessageRepo) List(ctx context.Context, groupID int64) ([]models.GroupMessage, error) {
	var msgs []models.GroupMessage
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+groupMessageColumns+` FROM group_messages WHERE group_id=$1 ORDER BY id ASC`,
		groupID)
	return msgs, err
}

// Get fetches a single message scoped to its group.
func (r *GroupMessageRepo) Get(ctx context.Context, groupID, messageID int64) (models.GroupMessage, error) {
	var msg models.GroupMessage
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+groupMessageColumns+` FROM group_messages WHERE id=$1 AND group_id=$2`,
		messageID, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupMessage{}, ErrMessageNotFound
	}
	return msg, err
}

// SetStarred conditionally updates the starred flag, matching on group and
// message id in one statement. Returns whether a row matched.
func (r *GroupMessageRepo) SetStarred(ctx context.Context, groupID, messageID int64, starred bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE group_messages SET starred=$3 WHERE id=$2 AND group_id=$1`,
		groupID, messageID, starred)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes the message from the log; idempotent.
func (r *GroupMessageRepo) Delete(ctx context.Context, groupID, messageID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM group_messages WHERE id=$2 AND group_id=$1`,
		groupID, messageID)
	return err
}
