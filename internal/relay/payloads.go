package relay

import "messenger-service/internal/models"

// One payload struct per inbound event name; envelopes are decoded into these
// at the boundary before any store or directory access.

type userPayload struct {
	UserID int64 `json:"user_id"`
}

type startConversationPayload struct {
	To   int64 `json:"to"`
	From int64 `json:"from"`
}

type conversationPayload struct {
	ConversationID int64 `json:"conversation_id"`
}

type replyPayload struct {
	MessageID int64 `json:"message_id"`
}

type textMessagePayload struct {
	ConversationID int64         `json:"conversation_id"`
	From           int64         `json:"from"`
	To             int64         `json:"to"`
	Type           string        `json:"type"`
	Message        string        `json:"message"`
	Reply          *replyPayload `json:"reply,omitempty"`
}

type fileMessagePayload struct {
	ConversationID int64           `json:"conversation_id"`
	From           int64           `json:"from"`
	To             int64           `json:"to"`
	Type           string          `json:"type"`
	Message        string          `json:"message"`
	File           models.FileInfo `json:"file"`
}

type deleteMessagePayload struct {
	ConversationID int64 `json:"conversation_id"`
	MessageID      int64 `json:"message_id"`
}

type forwardMessagePayload struct {
	MessageID          int64 `json:"message_id"`
	FromConversationID int64 `json:"from_conversation_id"`
	ToConversationID   int64 `json:"to_conversation_id"`
	ToUserID           int64 `json:"to_user_id"`
}

type starMessagePayload struct {
	ConversationID int64 `json:"conversation_id"`
	MessageID      int64 `json:"message_id"`
	Starred        bool  `json:"starred"`
}

type createGroupPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	MemberIDs   []int64 `json:"member_ids"`
}

type groupPayload struct {
	GroupID int64 `json:"group_id"`
}

type groupMessagePayload struct {
	GroupID int64         `json:"group_id"`
	From    int64         `json:"from"`
	Type    string        `json:"type"`
	Message string        `json:"message"`
	Reply   *replyPayload `json:"reply,omitempty"`
}

type groupFileMessagePayload struct {
	GroupID int64           `json:"group_id"`
	From    int64           `json:"from"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	File    models.FileInfo `json:"file"`
}

type deleteGroupMessagePayload struct {
	GroupID   int64 `json:"group_id"`
	MessageID int64 `json:"message_id"`
}

type starGroupMessagePayload struct {
	GroupID   int64 `json:"group_id"`
	MessageID int64 `json:"message_id"`
	Starred   bool  `json:"starred"`
}

type leaveGroupPayload struct {
	GroupID int64 `json:"group_id"`
	UserID  int64 `json:"user_id"`
}

type groupMembersPayload struct {
	GroupID   int64   `json:"group_id"`
	MemberIDs []int64 `json:"member_ids"`
}

type groupMemberPayload struct {
	GroupID  int64 `json:"group_id"`
	MemberID int64 `json:"member_id"`
}

type callStartPayload struct {
	From   int64  `json:"from"`
	To     int64  `json:"to"`
	RoomID string `json:"roomID"`
}

type callSignalPayload struct {
	To   int64 `json:"to"`
	From int64 `json:"from"`
}
