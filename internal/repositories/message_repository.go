package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions with a direct conversation's
// message log.
type MessageRepository interface {
	Append(ctx context.Context, conversationID int64, msg models.NewMessage) (models.Message, error)
	List(ctx context.Context, conversationID int64) ([]models.Message, error)
	Get(ctx context.Context, conversationID, messageID int64) (models.Message, error)
	SetStarred(ctx context.Context, conversationID, messageID int64, starred bool) (bool, error)
	Delete(ctx context.Context, conversationID, messageID int64) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, recipient_id, kind, body, file, reply, starred, forwarded, forwarded_from, created_at`

// Append pushes a message onto the conversation's log with a server-assigned
// id and timestamp. Two concurrent appends both succeed; arrival order at the
// store determines final sequence position.
func (r *MessageRepo) Append(ctx context.Context, conversationID int64, msg models.NewMessage) (models.Message, error) {
	var stored models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, recipient_id, kind, body, file, reply, forwarded, forwarded_from)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+messageColumns,
		conversationID, msg.SenderID, msg.RecipientID, msg.Kind, msg.Body, msg.File, msg.Reply, msg.Forwarded, msg.ForwardedFrom,
	).StructScan(&stored)
	return stored, err
}

// List returns the conversation's messages in log order.
func (r *MessageRepo) List(ctx context.Context, conversationID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY id ASC`,
		conversationID)
	return msgs, err
}

// Get fetches a single message scoped to its conversation.
func (r *MessageRepo) Get(ctx context.Context, conversationID, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE id=$1 AND conversation_id=$2`,
		messageID, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SetStarred conditionally updates the starred flag, matching on conversation
// and message id in one statement. Returns whether a row matched.
func (r *MessageRepo) SetStarred(ctx context.Context, conversationID, messageID int64, starred bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET starred=$3 WHERE id=$2 AND conversation_id=$1`,
		conversationID, messageID, starred)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes the message from the log. Idempotent: deleting an absent id
// is already-successful.
func (r *MessageRepo) Delete(ctx context.Context, conversationID, messageID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id=$2 AND conversation_id=$1`,
		conversationID, messageID)
	return err
}
