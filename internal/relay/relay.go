package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"messenger-service/internal/guard"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

var (
	errBadPayload   = errors.New("bad payload")
	errUnknownEvent = errors.New("unknown event")
)

// Relay routes inbound intents to the stores and fans resulting events out to
// online recipients through the presence directory. One Relay serves all
// connections; per-intent state lives in the payloads.
type Relay struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	groups        repositories.GroupRepository
	groupMessages repositories.GroupMessageRepository
	calls         repositories.CallRepository
	directory     *presence.Directory
	audit         *telemetry.AuditEmitter
}

// Deps bundles the relay's collaborators for construction.
type Deps struct {
	Conversations repositories.ConversationRepository
	Messages      repositories.MessageRepository
	Groups        repositories.GroupRepository
	GroupMessages repositories.GroupMessageRepository
	Calls         repositories.CallRepository
	Directory     *presence.Directory
	Audit         *telemetry.AuditEmitter
}

// New constructs a Relay.
func New(deps Deps) *Relay {
	return &Relay{
		conversations: deps.Conversations,
		messages:      deps.Messages,
		groups:        deps.Groups,
		groupMessages: deps.GroupMessages,
		calls:         deps.Calls,
		directory:     deps.Directory,
		audit:         deps.Audit,
	}
}

// Dispatch handles one inbound envelope and always produces a callback for
// the sending connection. Fan-out to other recipients happens inside the
// handlers; Dispatch itself never fails.
func (r *Relay) Dispatch(ctx context.Context, senderID int64, env models.Envelope) models.Callback {
	data, err := r.handle(ctx, senderID, env)
	observability.IncIntent(env.Event, outcome(err))

	cb := models.Callback{
		Event:   "callback",
		For:     env.Event,
		AckID:   env.AckID,
		Success: err == nil,
		Data:    data,
	}
	if err != nil {
		cb.Error = publicError(env.Event, err)
	}
	return cb
}

func (r *Relay) handle(ctx context.Context, senderID int64, env models.Envelope) (interface{}, error) {
	switch env.Event {
	// direct conversations
	case "get_direct_conversations":
		var p userPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.getDirectConversations(ctx, p)
	case "start_conversation":
		var p startConversationPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.startConversation(ctx, p)
	case "get_messages":
		var p conversationPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.getMessages(ctx, p)
	case "text_message":
		var p textMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.textMessage(ctx, p)
	case "file_message":
		var p fileMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.fileMessage(ctx, p)
	case "delete_message":
		var p deleteMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.deleteMessage(ctx, p)
	case "forward_message":
		var p forwardMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.forwardMessage(ctx, senderID, p)
	case "toggle_star_message":
		var p starMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.toggleStarMessage(ctx, p)

	// groups
	case "get_groups":
		var p userPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.getGroups(ctx, p)
	case "create_group":
		var p createGroupPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.createGroup(ctx, senderID, p)
	case "get_group_messages":
		var p groupPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.getGroupMessages(ctx, senderID, p)
	case "group_message":
		var p groupMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.groupMessage(ctx, p)
	case "group_file_message":
		var p groupFileMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.groupFileMessage(ctx, p)
	case "delete_group_message":
		var p deleteGroupMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.deleteGroupMessage(ctx, senderID, p)
	case "toggle_star_group_message":
		var p starGroupMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.toggleStarGroupMessage(ctx, senderID, p)
	case "leave_group":
		var p leaveGroupPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.leaveGroup(ctx, p)
	case "add_group_members":
		var p groupMembersPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.addGroupMembers(ctx, senderID, p)
	case "remove_group_member":
		var p groupMemberPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.removeGroupMember(ctx, senderID, p)
	case "promote_group_admin":
		var p groupMemberPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.promoteGroupAdmin(ctx, senderID, p)
	case "demote_group_admin":
		var p groupMemberPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.demoteGroupAdmin(ctx, senderID, p)

	// calls
	case "start_audio_call", "start_video_call":
		var p callStartPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.startCall(ctx, callKindOf(env.Event), p)
	case "audio_call_accepted", "video_call_accepted":
		var p callSignalPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.acceptCall(ctx, callKindOf(env.Event), p)
	case "audio_call_denied", "video_call_denied":
		var p callSignalPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.denyCall(ctx, callKindOf(env.Event), p)
	case "audio_call_not_picked", "video_call_not_picked":
		var p callSignalPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.missCall(ctx, callKindOf(env.Event), p)
	case "user_is_busy_audio_call", "user_is_busy_video_call":
		var p callSignalPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.busyCall(ctx, callKindOf(env.Event), p)
	case "audio_call_ended", "video_call_ended":
		var p callSignalPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.endCall(ctx, callKindOf(env.Event), p)
	case "get_audio_call_logs", "get_video_call_logs":
		var p userPayload
		if err := decode(env.Data, &p); err != nil {
			return nil, err
		}
		return r.getCallLogs(ctx, callKindOf(env.Event), p)
	}

	return nil, fmt.Errorf("%w: %q", errUnknownEvent, env.Event)
}

// notify fans an event out to each distinct online recipient. Offline or
// unknown recipients are skipped silently.
func (r *Relay) notify(ctx context.Context, userIDs []int64, event string, data interface{}) {
	evt := models.Event{Event: event, Data: data}
	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		r.directory.Send(ctx, id, evt)
	}
}

func decode(data json.RawMessage, dst interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", errBadPayload)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

func callKindOf(event string) models.CallKind {
	switch event {
	case "start_video_call", "video_call_accepted", "video_call_denied",
		"video_call_not_picked", "user_is_busy_video_call", "video_call_ended",
		"get_video_call_logs":
		return models.CallVideo
	default:
		return models.CallAudio
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, guard.ErrForbidden):
		return "forbidden"
	case errors.Is(err, guard.ErrInvalidOperation), errors.Is(err, errBadPayload), errors.Is(err, errUnknownEvent):
		return "invalid"
	case errors.Is(err, repositories.ErrConversationNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrGroupNotFound),
		errors.Is(err, repositories.ErrCallNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// publicError decides what the callback carries back to the client. Known
// domain errors surface as-is; anything else is logged server-side and masked.
func publicError(event string, err error) string {
	if outcome(err) != "error" {
		return err.Error()
	}
	log.Printf("relay: %s failed: %v", event, err)
	return "internal error"
}
