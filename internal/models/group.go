package models

import "time"

// Group is a conversation among a managed membership set. The creator is
// immutable, always a member and always an admin.
type Group struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatorID   int64     `db:"creator_id" json:"creator_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	Members []GroupMember `db:"-" json:"members,omitempty"`
}

// GroupMember is one membership row; admin status lives on the row.
type GroupMember struct {
	GroupID  int64     `db:"group_id" json:"group_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	IsAdmin  bool      `db:"is_admin" json:"is_admin"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Member returns the membership row for a user, if present.
func (g Group) Member(userID int64) (GroupMember, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return GroupMember{}, false
}

// IsMember reports whether the user belongs to the group.
func (g Group) IsMember(userID int64) bool {
	_, ok := g.Member(userID)
	return ok
}

// IsAdmin reports whether the user is an admin of the group.
func (g Group) IsAdmin(userID int64) bool {
	m, ok := g.Member(userID)
	return ok && m.IsAdmin
}

// MemberIDs returns all member ids in membership order.
func (g Group) MemberIDs() []int64 {
	ids := make([]int64, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// GroupMessage is a message in a group conversation. Membership implies
// recipients, so there is no `to` field.
type GroupMessage struct {
	ID            int64       `db:"id" json:"id"`
	GroupID       int64       `db:"group_id" json:"group_id"`
	SenderID      int64       `db:"sender_id" json:"from"`
	Kind          MessageKind `db:"kind" json:"kind"`
	Body          string      `db:"body" json:"text"`
	File          NullFile    `db:"file" json:"file"`
	Reply         NullReply   `db:"reply" json:"reply"`
	Starred       bool        `db:"starred" json:"starred"`
	Forwarded     bool        `db:"forwarded" json:"is_forwarded"`
	ForwardedFrom NullForward `db:"forwarded_from" json:"forwarded_from"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

// NewGroupMessage carries the caller-supplied fields of a group append.
type NewGroupMessage struct {
	SenderID      int64
	Kind          MessageKind
	Body          string
	File          NullFile
	Reply         NullReply
	Forwarded     bool
	ForwardedFrom NullForward
}
