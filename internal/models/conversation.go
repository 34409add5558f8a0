package models

import "time"

// Conversation is a direct thread between exactly two users. Participants are
// stored as a sorted pair so lookup by set works regardless of argument order.
type Conversation struct {
	ID        int64     `db:"id" json:"id"`
	User1ID   int64     `db:"user1_id" json:"user1_id"`
	User2ID   int64     `db:"user2_id" json:"user2_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Has reports whether the user participates in the conversation.
func (c Conversation) Has(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Participants returns both participant ids.
func (c Conversation) Participants() []int64 {
	return []int64{c.User1ID, c.User2ID}
}
