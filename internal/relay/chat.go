package relay

import (
	"context"
	"fmt"

	"messenger-service/internal/guard"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type conversationData struct {
	Conversation models.Conversation `json:"conversation"`
}

type messageData struct {
	ConversationID int64          `json:"conversation_id"`
	Message        models.Message `json:"message"`
}

type messageRefData struct {
	ConversationID int64 `json:"conversation_id"`
	MessageID      int64 `json:"message_id"`
}

func (r *Relay) getDirectConversations(ctx context.Context, p userPayload) (interface{}, error) {
	convs, err := r.conversations.ListForUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"conversations": convs}, nil
}

// startConversation finds or creates the single conversation for the pair and
// pushes a start_chat event at the initiator so every device converges on the
// same conversation id.
func (r *Relay) startConversation(ctx context.Context, p startConversationPayload) (interface{}, error) {
	conv, err := r.conversations.FindOrCreate(ctx, p.From, p.To)
	if err != nil {
		return nil, err
	}
	r.directory.Send(ctx, p.From, models.Event{Event: "start_chat", Data: conversationData{Conversation: conv}})
	return map[string]interface{}{"conversation": conv}, nil
}

func (r *Relay) getMessages(ctx context.Context, p conversationPayload) (interface{}, error) {
	conv, err := r.conversations.Get(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := r.messages.List(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"conversation_id": conv.ID, "messages": msgs}, nil
}

func (r *Relay) textMessage(ctx context.Context, p textMessagePayload) (interface{}, error) {
	conv, err := r.conversations.Get(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Has(p.From) || !conv.Has(p.To) {
		return nil, fmt.Errorf("%w: not a conversation participant", guard.ErrForbidden)
	}

	msg := models.NewMessage{SenderID: p.From, RecipientID: p.To, Kind: models.KindText, Body: p.Message}
	if p.Type != "" {
		kind, err := models.ParseKind(p.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		msg.Kind = kind
	}
	if p.Reply != nil {
		snap, err := r.replySnapshot(ctx, conv.ID, p.Reply.MessageID)
		if err != nil {
			return nil, err
		}
		msg.Kind = models.KindReply
		msg.Reply = snap
	}

	stored, err := r.messages.Append(ctx, conv.ID, msg)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, conv.Participants(), "new_message", messageData{ConversationID: conv.ID, Message: stored})
	return map[string]interface{}{"message": stored}, nil
}

func (r *Relay) fileMessage(ctx context.Context, p fileMessagePayload) (interface{}, error) {
	conv, err := r.conversations.Get(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Has(p.From) || !conv.Has(p.To) {
		return nil, fmt.Errorf("%w: not a conversation participant", guard.ErrForbidden)
	}
	if p.File.URL == "" {
		return nil, fmt.Errorf("%w: file url required", errBadPayload)
	}

	kind := models.KindMedia
	if p.Type != "" {
		kind, err = models.ParseKind(p.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
	}

	msg := models.NewMessage{
		SenderID:    p.From,
		RecipientID: p.To,
		Kind:        kind,
		Body:        p.Message,
		File:        models.NullFile{Valid: true, File: p.File},
	}
	stored, err := r.messages.Append(ctx, conv.ID, msg)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, conv.Participants(), "new_message", messageData{ConversationID: conv.ID, Message: stored})
	return map[string]interface{}{"message": stored}, nil
}

// deleteMessage removes the message and tells both participants. Deleting an
// already-deleted message succeeds so retried intents stay harmless.
func (r *Relay) deleteMessage(ctx context.Context, p deleteMessagePayload) (interface{}, error) {
	conv, err := r.conversations.Get(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := r.messages.Delete(ctx, conv.ID, p.MessageID); err != nil {
		return nil, err
	}
	r.notify(ctx, conv.Participants(), "message_deleted", messageRefData{ConversationID: conv.ID, MessageID: p.MessageID})
	return nil, nil
}

// forwardMessage copies the source message into the target conversation with
// a provenance snapshot. The snapshot is a value copy, so deleting the source
// afterwards leaves the forwarded message intact.
func (r *Relay) forwardMessage(ctx context.Context, senderID int64, p forwardMessagePayload) (interface{}, error) {
	srcConv, err := r.conversations.Get(ctx, p.FromConversationID)
	if err != nil {
		return nil, err
	}
	if !srcConv.Has(senderID) {
		return nil, fmt.Errorf("%w: not a conversation participant", guard.ErrForbidden)
	}
	src, err := r.messages.Get(ctx, srcConv.ID, p.MessageID)
	if err != nil {
		return nil, err
	}
	target, err := r.conversations.Get(ctx, p.ToConversationID)
	if err != nil {
		return nil, err
	}
	if !target.Has(senderID) {
		return nil, fmt.Errorf("%w: not a conversation participant", guard.ErrForbidden)
	}
	if !target.Has(p.ToUserID) {
		return nil, fmt.Errorf("%w: recipient not in target conversation", errBadPayload)
	}

	msg := models.NewMessage{
		SenderID:    senderID,
		RecipientID: p.ToUserID,
		Kind:        src.Kind,
		Body:        src.Body,
		File:        src.File,
		Forwarded:   true,
		ForwardedFrom: models.NullForward{Valid: true, Forward: models.ForwardSnapshot{
			MessageID: src.ID,
			SenderID:  src.SenderID,
			Text:      src.Body,
			SentAt:    src.CreatedAt,
		}},
	}
	stored, err := r.messages.Append(ctx, target.ID, msg)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, []int64{p.ToUserID, senderID}, "new_message", messageData{ConversationID: target.ID, Message: stored})
	return map[string]interface{}{"message": stored}, nil
}

// toggleStarMessage sets the starred flag in either direction. A vanished
// message fails the callback instead of silently succeeding.
func (r *Relay) toggleStarMessage(ctx context.Context, p starMessagePayload) (interface{}, error) {
	conv, err := r.conversations.Get(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	matched, err := r.messages.SetStarred(ctx, conv.ID, p.MessageID, p.Starred)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, repositories.ErrMessageNotFound
	}
	r.notify(ctx, conv.Participants(), "message_starred", struct {
		messageRefData
		Starred bool `json:"starred"`
	}{messageRefData{ConversationID: conv.ID, MessageID: p.MessageID}, p.Starred})
	return nil, nil
}

func (r *Relay) replySnapshot(ctx context.Context, conversationID, messageID int64) (models.NullReply, error) {
	src, err := r.messages.Get(ctx, conversationID, messageID)
	if err != nil {
		return models.NullReply{}, err
	}
	snap := models.ReplySnapshot{
		MessageID: src.ID,
		SenderID:  src.SenderID,
		Kind:      src.Kind,
		Text:      src.Body,
	}
	if src.File.Valid {
		f := src.File.File
		snap.File = &f
	}
	return models.NullReply{Valid: true, Reply: snap}, nil
}
