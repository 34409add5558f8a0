package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MessageKind classifies a message payload.
type MessageKind string

const (
	KindText     MessageKind = "Text"
	KindMedia    MessageKind = "Media"
	KindDocument MessageKind = "Document"
	KindLink     MessageKind = "Link"
	KindReply    MessageKind = "Reply"
)

// ParseKind validates a wire-level kind string.
func ParseKind(s string) (MessageKind, error) {
	switch MessageKind(s) {
	case KindText, KindMedia, KindDocument, KindLink, KindReply:
		return MessageKind(s), nil
	}
	return "", fmt.Errorf("unknown message kind %q", s)
}

// FileInfo describes an uploaded attachment, as produced by the upload endpoint.
type FileInfo struct {
	URL          string `json:"url"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
}

// ReplySnapshot is a denormalized copy of the replied-to message. It is a
// snapshot, not a reference: deleting the original leaves it intact.
type ReplySnapshot struct {
	MessageID int64       `json:"message_id"`
	SenderID  int64       `json:"sender_id"`
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text"`
	File      *FileInfo   `json:"file,omitempty"`
}

// ForwardSnapshot preserves the origin of a forwarded message.
type ForwardSnapshot struct {
	MessageID int64     `json:"message_id"`
	SenderID  int64     `json:"sender_id"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`
}

// NullFile is an optional FileInfo stored as a nullable JSONB column.
type NullFile struct {
	File  FileInfo
	Valid bool
}

func (n *NullFile) Scan(src interface{}) error {
	n.Valid = false
	if src == nil {
		n.File = FileInfo{}
		return nil
	}
	if err := scanJSON(&n.File, src); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n NullFile) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return json.Marshal(n.File)
}

func (n NullFile) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.File)
}

func (n *NullFile) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		*n = NullFile{}
		return nil
	}
	if err := json.Unmarshal(data, &n.File); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// NullReply is an optional ReplySnapshot stored as a nullable JSONB column.
type NullReply struct {
	Reply ReplySnapshot
	Valid bool
}

func (n *NullReply) Scan(src interface{}) error {
	n.Valid = false
	if src == nil {
		n.Reply = ReplySnapshot{}
		return nil
	}
	if err := scanJSON(&n.Reply, src); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n NullReply) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return json.Marshal(n.Reply)
}

func (n NullReply) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Reply)
}

func (n *NullReply) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		*n = NullReply{}
		return nil
	}
	if err := json.Unmarshal(data, &n.Reply); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// NullForward is an optional ForwardSnapshot stored as a nullable JSONB column.
type NullForward struct {
	Forward ForwardSnapshot
	Valid   bool
}

func (n *NullForward) Scan(src interface{}) error {
	n.Valid = false
	if src == nil {
		n.Forward = ForwardSnapshot{}
		return nil
	}
	if err := scanJSON(&n.Forward, src); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n NullForward) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return json.Marshal(n.Forward)
}

func (n NullForward) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Forward)
}

func (n *NullForward) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		*n = NullForward{}
		return nil
	}
	if err := json.Unmarshal(data, &n.Forward); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func scanJSON(dst interface{}, src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	}
	return fmt.Errorf("cannot scan %T into JSONB value", src)
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// Message is a message in a direct conversation.
type Message struct {
	ID             int64       `db:"id" json:"id"`
	ConversationID int64       `db:"conversation_id" json:"conversation_id"`
	SenderID       int64       `db:"sender_id" json:"from"`
	RecipientID    int64       `db:"recipient_id" json:"to"`
	Kind           MessageKind `db:"kind" json:"kind"`
	Body           string      `db:"body" json:"text"`
	File           NullFile    `db:"file" json:"file"`
	Reply          NullReply   `db:"reply" json:"reply"`
	Starred        bool        `db:"starred" json:"starred"`
	Forwarded      bool        `db:"forwarded" json:"is_forwarded"`
	ForwardedFrom  NullForward `db:"forwarded_from" json:"forwarded_from"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// NewMessage carries the caller-supplied fields of a message append. Id and
// timestamp are assigned by the store.
type NewMessage struct {
	SenderID      int64
	RecipientID   int64
	Kind          MessageKind
	Body          string
	File          NullFile
	Reply         NullReply
	Forwarded     bool
	ForwardedFrom NullForward
}
