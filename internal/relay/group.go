package relay

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"messenger-service/internal/guard"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type groupData struct {
	Group models.Group `json:"group"`
}

type groupMessageData struct {
	GroupID int64               `json:"group_id"`
	Message models.GroupMessage `json:"message"`
}

type groupMessageRefData struct {
	GroupID   int64 `json:"group_id"`
	MessageID int64 `json:"message_id"`
}

type groupMemberData struct {
	GroupID  int64 `json:"group_id"`
	MemberID int64 `json:"member_id"`
}

func (r *Relay) getGroups(ctx context.Context, p userPayload) (interface{}, error) {
	groups, err := r.groups.ListForUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"groups": groups}, nil
}

// createGroup creates the group with the sender as creator-admin and notifies
// every initial member.
func (r *Relay) createGroup(ctx context.Context, senderID int64, p createGroupPayload) (interface{}, error) {
	if senderID <= 0 {
		return nil, fmt.Errorf("%w: anonymous connections cannot create groups", guard.ErrForbidden)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: group name required", errBadPayload)
	}

	group, err := r.groups.Create(ctx, senderID, p.Name, p.Description, p.MemberIDs)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, group.MemberIDs(), "added_to_group", groupData{Group: group})
	r.auditGroup(ctx, senderID, fmt.Sprintf("group %d created by user %d", group.ID, senderID))
	return map[string]interface{}{"group": group}, nil
}

func (r *Relay) getGroupMessages(ctx context.Context, senderID int64, p groupPayload) (interface{}, error) {
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(senderID) {
		return nil, fmt.Errorf("%w: not a group member", guard.ErrForbidden)
	}
	msgs, err := r.groupMessages.List(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"group_id": group.ID, "messages": msgs}, nil
}

func (r *Relay) groupMessage(ctx context.Context, p groupMessagePayload) (interface{}, error) {
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(p.From) {
		return nil, fmt.Errorf("%w: not a group member", guard.ErrForbidden)
	}

	msg := models.NewGroupMessage{SenderID: p.From, Kind: models.KindText, Body: p.Message}
	if p.Type != "" {
		kind, err := models.ParseKind(p.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		msg.Kind = kind
	}
	if p.Reply != nil {
		snap, err := r.groupReplySnapshot(ctx, group.ID, p.Reply.MessageID)
		if err != nil {
			return nil, err
		}
		msg.Kind = models.KindReply
		msg.Reply = snap
	}

	stored, err := r.groupMessages.Append(ctx, group.ID, msg)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, group.MemberIDs(), "new_group_message", groupMessageData{GroupID: group.ID, Message: stored})
	return map[string]interface{}{"message": stored}, nil
}

func (r *Relay) groupFileMessage(ctx context.Context, p groupFileMessagePayload) (interface{}, error) {
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(p.From) {
		return nil, fmt.Errorf("%w: not a group member", guard.ErrForbidden)
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

	stored, err := r.groupMessages.Append(ctx, group.ID, models.NewGroupMessage{
		SenderID: p.From,
		Kind:     kind,
		Body:     p.Message,
		File:     models.NullFile{Valid: true, File: p.File},
	})
	if err != nil {
		return nil, err
	}
	r.notify(ctx, group.MemberIDs(), "new_group_message", groupMessageData{GroupID: group.ID, Message: stored})
	return map[string]interface{}{"message": stored}, nil
}

func (r *Relay) deleteGroupMessage(ctx context.Context, senderID int64, p deleteGroupMessagePayload) (interface{}, error) {
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(senderID) {
		return nil, fmt.Errorf("%w: not a group member", guard.ErrForbidden)
	}
	if err := r.groupMessages.Delete(ctx, group.ID, p.MessageID); err != nil {
		return nil, err
	}
	r.notify(ctx, group.MemberIDs(), "group_message_deleted", groupMessageRefData{GroupID: group.ID, MessageID: p.MessageID})
	return nil, nil
}

func (r *Relay) toggleStarGroupMessage(ctx context.Context, senderID int64, p starGroupMessagePayload) (interface{}, error) {
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(senderID) {
		return nil, fmt.Errorf("%w: not a group member", guard.ErrForbidden)
	}
	matched, err := r.groupMessages.SetStarred(ctx, group.ID, p.MessageID, p.Starred)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, repositories.ErrMessageNotFound
	}
	r.notify(ctx, group.MemberIDs(), "group_message_starred", struct {
		groupMessageRefData
		Starred bool `json:"starred"`
	}{groupMessageRefData{GroupID: group.ID, MessageID: p.MessageID}, p.Starred})
	return nil, nil
}

// leaveGroup removes the member and announces the departure to the membership
// as it was before the leave, so the departing user hears the confirmation too.
func (r *Relay) leaveGroup(ctx context.Context, p leaveGroupPayload) (interface{}, error) {
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	before := group.MemberIDs()
	if err := r.groups.Leave(ctx, group.ID, p.UserID); err != nil {
		return nil, err
	}
	r.notify(ctx, before, "user_left_group", struct {
		GroupID int64 `json:"group_id"`
		UserID  int64 `json:"user_id"`
	}{group.ID, p.UserID})
	r.auditGroup(ctx, p.UserID, fmt.Sprintf("user %d left group %d", p.UserID, group.ID))
	return nil, nil
}

func (r *Relay) addGroupMembers(ctx context.Context, senderID int64, p groupMembersPayload) (interface{}, error) {
	if err := r.groups.AddMembers(ctx, p.GroupID, senderID, p.MemberIDs); err != nil {
		return nil, err
	}
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, group.MemberIDs(), "group_members_added", struct {
		GroupID   int64        `json:"group_id"`
		MemberIDs []int64      `json:"member_ids"`
		Group     models.Group `json:"group"`
	}{group.ID, p.MemberIDs, group})
	r.auditGroup(ctx, senderID, fmt.Sprintf("user %d added %d member(s) to group %d", senderID, len(p.MemberIDs), group.ID))
	return map[string]interface{}{"group": group}, nil
}

func (r *Relay) removeGroupMember(ctx context.Context, senderID int64, p groupMemberPayload) (interface{}, error) {
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	before := group.MemberIDs()
	if err := r.groups.RemoveMember(ctx, group.ID, senderID, p.MemberID); err != nil {
		return nil, err
	}
	r.notify(ctx, before, "group_member_removed", groupMemberData{GroupID: group.ID, MemberID: p.MemberID})
	r.auditGroup(ctx, senderID, fmt.Sprintf("user %d removed user %d from group %d", senderID, p.MemberID, group.ID))
	return nil, nil
}

func (r *Relay) promoteGroupAdmin(ctx context.Context, senderID int64, p groupMemberPayload) (interface{}, error) {
	if err := r.groups.PromoteAdmin(ctx, p.GroupID, senderID, p.MemberID); err != nil {
		return nil, err
	}
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, group.MemberIDs(), "group_admin_promoted", groupMemberData{GroupID: group.ID, MemberID: p.MemberID})
	r.auditGroup(ctx, senderID, fmt.Sprintf("user %d promoted user %d in group %d", senderID, p.MemberID, group.ID))
	return nil, nil
}

func (r *Relay) demoteGroupAdmin(ctx context.Context, senderID int64, p groupMemberPayload) (interface{}, error) {
	if err := r.groups.DemoteAdmin(ctx, p.GroupID, senderID, p.MemberID); err != nil {
		return nil, err
	}
	group, err := r.groups.Get(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, group.MemberIDs(), "group_admin_demoted", groupMemberData{GroupID: group.ID, MemberID: p.MemberID})
	r.auditGroup(ctx, senderID, fmt.Sprintf("user %d demoted user %d in group %d", senderID, p.MemberID, group.ID))
	return nil, nil
}

func (r *Relay) groupReplySnapshot(ctx context.Context, groupID, messageID int64) (models.NullReply, error) {
	src, err := r.groupMessages.Get(ctx, groupID, messageID)
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

func (r *Relay) auditGroup(ctx context.Context, userID int64, text string) {
	var uid *int64
	if userID > 0 {
		uid = &userID
	}
	r.audit.Emit(ctx, "INFO", text, uuid.NewString(), uid)
}
