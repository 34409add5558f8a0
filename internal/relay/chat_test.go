package relay

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/presence"
	"messenger-service/internal/repositories"
)

type relayFixture struct {
	relay         *Relay
	conversations *mocks.ConversationRepositoryMock
	messages      *mocks.MessageRepositoryMock
	groups        *mocks.GroupRepositoryMock
	groupMessages *mocks.GroupMessageRepositoryMock
	calls         *mocks.CallRepositoryMock
	directory     *presence.Directory
	conns         map[int64]*mocks.ConnRecorder
}

func newRelayFixture() *relayFixture {
	f := &relayFixture{
		conversations: new(mocks.ConversationRepositoryMock),
		messages:      new(mocks.MessageRepositoryMock),
		groups:        new(mocks.GroupRepositoryMock),
		groupMessages: new(mocks.GroupMessageRepositoryMock),
		calls:         new(mocks.CallRepositoryMock),
		directory:     presence.NewDirectory(),
		conns:         map[int64]*mocks.ConnRecorder{},
	}
	f.relay = New(Deps{
		Conversations: f.conversations,
		Messages:      f.messages,
		Groups:        f.groups,
		GroupMessages: f.groupMessages,
		Calls:         f.calls,
		Directory:     f.directory,
	})
	return f
}

// connect puts a recording connection online for the user.
func (f *relayFixture) connect(userID int64) *mocks.ConnRecorder {
	rec := &mocks.ConnRecorder{}
	f.directory.Register(userID, presence.NewClient(rec, presence.ConnInfo{UserID: userID}))
	f.conns[userID] = rec
	return rec
}

func (f *relayFixture) dispatch(t *testing.T, senderID int64, event, data string) models.Callback {
	t.Helper()
	return f.relay.Dispatch(context.Background(), senderID, models.Envelope{
		Event: event,
		AckID: 1,
		Data:  json.RawMessage(data),
	})
}

// eventsFor extracts the outbound event names delivered to a connection.
func eventsFor(rec *mocks.ConnRecorder) []string {
	var names []string
	for _, frame := range rec.Written() {
		if evt, ok := frame.(models.Event); ok {
			names = append(names, evt.Event)
		}
	}
	return names
}

func TestStartConversationDeliversStartChat(t *testing.T) {
	f := newRelayFixture()
	alice := f.connect(1)

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("FindOrCreate", mock.Anything, int64(1), int64(2)).Return(conv, nil).Once()

	cb := f.dispatch(t, 1, "start_conversation", `{"from":1,"to":2}`)

	require.True(t, cb.Success)
	assert.Equal(t, "start_conversation", cb.For)
	assert.Equal(t, []string{"start_chat"}, eventsFor(alice))
	f.conversations.AssertExpectations(t)
}

func TestStartConversationIsIdempotentAcrossRetries(t *testing.T) {
	f := newRelayFixture()
	f.connect(1)

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("FindOrCreate", mock.Anything, int64(1), int64(2)).Return(conv, nil).Twice()

	first := f.dispatch(t, 1, "start_conversation", `{"from":1,"to":2}`)
	second := f.dispatch(t, 1, "start_conversation", `{"from":1,"to":2}`)

	require.True(t, first.Success)
	require.True(t, second.Success)
	f.conversations.AssertExpectations(t)
}

func TestTextMessageFansOutToBothParticipantsOnce(t *testing.T) {
	f := newRelayFixture()
	alice := f.connect(1)
	bob := f.connect(2)

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	stored := models.Message{ID: 9, ConversationID: 5, SenderID: 1, RecipientID: 2, Kind: models.KindText, Body: "hi"}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(conv, nil).Once()
	f.messages.On("Append", mock.Anything, int64(5), mock.MatchedBy(func(m models.NewMessage) bool {
		return m.SenderID == 1 && m.RecipientID == 2 && m.Kind == models.KindText && m.Body == "hi"
	})).Return(stored, nil).Once()

	cb := f.dispatch(t, 1, "text_message", `{"conversation_id":5,"from":1,"to":2,"message":"hi"}`)

	require.True(t, cb.Success)
	assert.Equal(t, []string{"new_message"}, eventsFor(alice))
	assert.Equal(t, []string{"new_message"}, eventsFor(bob))
	f.messages.AssertExpectations(t)
}

func TestTextMessageOfflineRecipientStillSucceeds(t *testing.T) {
	f := newRelayFixture()
	alice := f.connect(1)

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(conv, nil).Once()
	f.messages.On("Append", mock.Anything, int64(5), mock.Anything).Return(models.Message{ID: 9}, nil).Once()

	cb := f.dispatch(t, 1, "text_message", `{"conversation_id":5,"from":1,"to":2,"message":"hi"}`)

	require.True(t, cb.Success)
	assert.Equal(t, []string{"new_message"}, eventsFor(alice))
}

func TestTextMessageRejectsNonParticipant(t *testing.T) {
	f := newRelayFixture()

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(conv, nil).Once()

	cb := f.dispatch(t, 3, "text_message", `{"conversation_id":5,"from":3,"to":2,"message":"hi"}`)

	require.False(t, cb.Success)
	assert.Contains(t, cb.Error, "forbidden")
	f.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestTextMessageWithReplyBuildsSnapshotServerSide(t *testing.T) {
	f := newRelayFixture()

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	source := models.Message{ID: 7, ConversationID: 5, SenderID: 2, Kind: models.KindText, Body: "original"}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(conv, nil).Once()
	f.messages.On("Get", mock.Anything, int64(5), int64(7)).Return(source, nil).Once()
	f.messages.On("Append", mock.Anything, int64(5), mock.MatchedBy(func(m models.NewMessage) bool {
		return m.Kind == models.KindReply &&
			m.Reply.Valid &&
			m.Reply.Reply.MessageID == 7 &&
			m.Reply.Reply.SenderID == 2 &&
			m.Reply.Reply.Text == "original"
	})).Return(models.Message{ID: 9}, nil).Once()

	cb := f.dispatch(t, 1, "text_message", `{"conversation_id":5,"from":1,"to":2,"message":"re","reply":{"message_id":7}}`)

	require.True(t, cb.Success)
	f.messages.AssertExpectations(t)
}

func TestTextMessageReplyToMissingMessageFails(t *testing.T) {
	f := newRelayFixture()

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(conv, nil).Once()
	f.messages.On("Get", mock.Anything, int64(5), int64(404)).Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	cb := f.dispatch(t, 1, "text_message", `{"conversation_id":5,"from":1,"to":2,"message":"re","reply":{"message_id":404}}`)

	require.False(t, cb.Success)
	assert.Equal(t, "message not found", cb.Error)
}

func TestFileMessageRequiresFileURL(t *testing.T) {
	f := newRelayFixture()

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(conv, nil).Once()

	cb := f.dispatch(t, 1, "file_message", `{"conversation_id":5,"from":1,"to":2,"file":{}}`)

	require.False(t, cb.Success)
	assert.Contains(t, cb.Error, "file url required")
}

func TestDeleteMessageIsIdempotent(t *testing.T) {
	f := newRelayFixture()
	bob := f.connect(2)

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(conv, nil).Twice()
	f.messages.On("Delete", mock.Anything, int64(5), int64(9)).Return(nil).Twice()

	first := f.dispatch(t, 1, "delete_message", `{"conversation_id":5,"message_id":9}`)
	second := f.dispatch(t, 1, "delete_message", `{"conversation_id":5,"message_id":9}`)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, []string{"message_deleted", "message_deleted"}, eventsFor(bob))
}

func TestToggleStarMessageRoundTrip(t *testing.T) {
	f := newRelayFixture()

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(conv, nil).Twice()
	f.messages.On("SetStarred", mock.Anything, int64(5), int64(9), true).Return(true, nil).Once()
	f.messages.On("SetStarred", mock.Anything, int64(5), int64(9), false).Return(true, nil).Once()

	star := f.dispatch(t, 1, "toggle_star_message", `{"conversation_id":5,"message_id":9,"starred":true}`)
	unstar := f.dispatch(t, 1, "toggle_star_message", `{"conversation_id":5,"message_id":9,"starred":false}`)

	require.True(t, star.Success)
	require.True(t, unstar.Success)
	f.messages.AssertExpectations(t)
}

func TestToggleStarMissingMessageFails(t *testing.T) {
	f := newRelayFixture()

	conv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(conv, nil).Once()
	f.messages.On("SetStarred", mock.Anything, int64(5), int64(404), true).Return(false, nil).Once()

	cb := f.dispatch(t, 1, "toggle_star_message", `{"conversation_id":5,"message_id":404,"starred":true}`)

	require.False(t, cb.Success)
	assert.Equal(t, "message not found", cb.Error)
}

func TestForwardMessageCopiesProvenanceSnapshot(t *testing.T) {
	f := newRelayFixture()
	alice := f.connect(1)
	carol := f.connect(3)

	sourceConv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	source := models.Message{ID: 7, ConversationID: 5, SenderID: 2, Kind: models.KindText, Body: "original"}
	target := models.Conversation{ID: 6, User1ID: 1, User2ID: 3}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(sourceConv, nil).Once()
	f.messages.On("Get", mock.Anything, int64(5), int64(7)).Return(source, nil).Once()
	f.conversations.On("Get", mock.Anything, int64(6)).Return(target, nil).Once()
	f.messages.On("Append", mock.Anything, int64(6), mock.MatchedBy(func(m models.NewMessage) bool {
		return m.Forwarded &&
			m.ForwardedFrom.Valid &&
			m.ForwardedFrom.Forward.MessageID == 7 &&
			m.ForwardedFrom.Forward.SenderID == 2 &&
			m.Body == "original"
	})).Return(models.Message{ID: 20, ConversationID: 6, Forwarded: true}, nil).Once()

	cb := f.dispatch(t, 1, "forward_message", `{"message_id":7,"from_conversation_id":5,"to_conversation_id":6,"to_user_id":3}`)

	require.True(t, cb.Success)
	assert.Equal(t, []string{"new_message"}, eventsFor(carol))
	assert.Equal(t, []string{"new_message"}, eventsFor(alice))
	f.messages.AssertExpectations(t)
}

func TestForwardMissingSourceFails(t *testing.T) {
	f := newRelayFixture()

	sourceConv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(sourceConv, nil).Once()
	f.messages.On("Get", mock.Anything, int64(5), int64(404)).Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	cb := f.dispatch(t, 1, "forward_message", `{"message_id":404,"from_conversation_id":5,"to_conversation_id":6,"to_user_id":3}`)

	require.False(t, cb.Success)
	assert.Equal(t, "message not found", cb.Error)
}

// Forwarding is gated on membership in both conversations; a connected user
// cannot re-send someone else's message by id alone.
func TestForwardRejectsNonParticipantOfSource(t *testing.T) {
	f := newRelayFixture()

	sourceConv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(sourceConv, nil).Once()

	cb := f.dispatch(t, 9, "forward_message", `{"message_id":7,"from_conversation_id":5,"to_conversation_id":6,"to_user_id":3}`)

	require.False(t, cb.Success)
	assert.Contains(t, cb.Error, "forbidden")
	f.messages.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	f.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestForwardRejectsNonParticipantOfTarget(t *testing.T) {
	f := newRelayFixture()

	sourceConv := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	source := models.Message{ID: 7, ConversationID: 5, SenderID: 2, Body: "original"}
	target := models.Conversation{ID: 6, User1ID: 3, User2ID: 4}
	f.conversations.On("Get", mock.Anything, int64(5)).Return(sourceConv, nil).Once()
	f.messages.On("Get", mock.Anything, int64(5), int64(7)).Return(source, nil).Once()
	f.conversations.On("Get", mock.Anything, int64(6)).Return(target, nil).Once()

	cb := f.dispatch(t, 1, "forward_message", `{"message_id":7,"from_conversation_id":5,"to_conversation_id":6,"to_user_id":3}`)

	require.False(t, cb.Success)
	assert.Contains(t, cb.Error, "forbidden")
	f.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnknownEventFailsTheCallback(t *testing.T) {
	f := newRelayFixture()

	cb := f.dispatch(t, 1, "no_such_event", `{}`)

	require.False(t, cb.Success)
	assert.Contains(t, cb.Error, "unknown event")
}

func TestMalformedPayloadFailsTheCallback(t *testing.T) {
	f := newRelayFixture()

	cb := f.dispatch(t, 1, "text_message", `{"conversation_id":"not a number"}`)

	require.False(t, cb.Success)
	assert.Contains(t, cb.Error, "bad payload")
}
