package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts direct conversation persistence.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userID, peerID int64) (models.Conversation, error)
	Get(ctx context.Context, conversationID int64) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, user1_id, user2_id, created_at`

// FindOrCreate resolves the single conversation for the unordered pair,
// creating it on first use. The pair is normalized to sorted order and backed
// by a UNIQUE constraint, so two near-simultaneous calls from both sides
// cannot produce two rows; the loser of the race re-reads the winner's row.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, userID, peerID int64) (models.Conversation, error) {
	if userID == peerID {
		return models.Conversation{}, errors.New("cannot start a conversation with yourself")
	}
	user1, user2 := userID, peerID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	var conv models.Conversation
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE user1_id=$1 AND user2_id=$2`
	err := r.db.GetContext(ctx, &conv, query, user1, user2)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	insert := `INSERT INTO conversations (user1_id, user2_id) VALUES ($1, $2)
        ON CONFLICT (user1_id, user2_id) DO NOTHING
        RETURNING ` + conversationColumns
	err = r.db.QueryRowxContext(ctx, insert, user1, user2).StructScan(&conv)
	if errors.Is(err, sql.ErrNoRows) {
		// lost the creation race; the row exists now
		err = r.db.GetContext(ctx, &conv, query, user1, user2)
	}
	if err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID int64) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListForUser returns every conversation containing the user.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs,
		`SELECT `+conversationColumns+` FROM conversations WHERE user1_id=$1 OR user2_id=$1 ORDER BY created_at DESC`,
		userID)
	return convs, err
}
