package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) FindOrCreate(ctx context.Context, userA, userB int64) (models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, conversationID int64) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, conversationID int64, msg models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, conversationID, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) List(ctx context.Context, conversationID int64) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, conversationID, messageID int64) (models.Message, error) {
	args := m.Called(ctx, conversationID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SetStarred(ctx context.Context, conversationID, messageID int64, starred bool) (bool, error) {
	args := m.Called(ctx, conversationID, messageID, starred)
	return args.Bool(0), args.Error(1)
}

func (m *MessageRepositoryMock) Delete(ctx context.Context, conversationID, messageID int64) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) Create(ctx context.Context, creatorID int64, name, description string, memberIDs []int64) (models.Group, error) {
	args := m.Called(ctx, creatorID, name, description, memberIDs)
	var g models.Group
	if val := args.Get(0); val != nil {
		g = val.(models.Group)
	}
	return g, args.Error(1)
}

func (m *GroupRepositoryMock) Get(ctx context.Context, groupID int64) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var g models.Group
	if val := args.Get(0); val != nil {
		g = val.(models.Group)
	}
	return g, args.Error(1)
}

func (m *GroupRepositoryMock) ListForUser(ctx context.Context, userID int64) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var list []models.Group
	if val := args.Get(0); val != nil {
		list = val.([]models.Group)
	}
	return list, args.Error(1)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GroupRepositoryMock) AddMembers(ctx context.Context, groupID, actorID int64, memberIDs []int64) error {
	args := m.Called(ctx, groupID, actorID, memberIDs)
	return args.Error(0)
}

func (m *GroupRepositoryMock) RemoveMember(ctx context.Context, groupID, actorID, memberID int64) error {
	args := m.Called(ctx, groupID, actorID, memberID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) PromoteAdmin(ctx context.Context, groupID, actorID, memberID int64) error {
	args := m.Called(ctx, groupID, actorID, memberID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) DemoteAdmin(ctx context.Context, groupID, actorID, memberID int64) error {
	args := m.Called(ctx, groupID, actorID, memberID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) Leave(ctx context.Context, groupID, userID int64) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

func (m *GroupMessageRepositoryMock) Append(ctx context.Context, groupID int64, msg models.NewGroupMessage) (models.GroupMessage, error) {
	args := m.Called(ctx, groupID, msg)
	var stored models.GroupMessage
	if val := args.Get(0); val != nil {
		stored = val.(models.GroupMessage)
	}
	return stored, args.Error(1)
}

func (m *GroupMessageRepositoryMock) List(ctx context.Context, groupID int64) ([]models.GroupMessage, error) {
	args := m.Called(ctx, groupID)
	var list []models.GroupMessage
	if val := args.Get(0); val != nil {
		list = val.([]models.GroupMessage)
	}
	return list, args.Error(1)
}

func (m *GroupMessageRepositoryMock) Get(ctx context.Context, groupID, messageID int64) (models.GroupMessage, error) {
	args := m.Called(ctx, groupID, messageID)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) SetStarred(ctx context.Context, groupID, messageID int64, starred bool) (bool, error) {
	args := m.Called(ctx, groupID, messageID, starred)
	return args.Bool(0), args.Error(1)
}

func (m *GroupMessageRepositoryMock) Delete(ctx context.Context, groupID, messageID int64) error {
	args := m.Called(ctx, groupID, messageID)
	return args.Error(0)
}

type CallRepositoryMock struct {
	mock.Mock
}

func (m *CallRepositoryMock) Create(ctx context.Context, kind models.CallKind, callerID, calleeID int64, roomID string) (models.CallRecord, error) {
	args := m.Called(ctx, kind, callerID, calleeID, roomID)
	var rec models.CallRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.CallRecord)
	}
	return rec, args.Error(1)
}

func (m *CallRepositoryMock) SetVerdict(ctx context.Context, kind models.CallKind, userA, userB int64, verdict models.CallVerdict, ended bool) (models.CallRecord, error) {
	args := m.Called(ctx, kind, userA, userB, verdict, ended)
	var rec models.CallRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.CallRecord)
	}
	return rec, args.Error(1)
}

func (m *CallRepositoryMock) End(ctx context.Context, kind models.CallKind, userA, userB int64) (models.CallRecord, error) {
	args := m.Called(ctx, kind, userA, userB)
	var rec models.CallRecord
	if val := args.Get(0); val != nil {
		rec = val.(models.CallRecord)
	}
	return rec, args.Error(1)
}

func (m *CallRepositoryMock) ListForUser(ctx context.Context, kind models.CallKind, userID int64) ([]models.CallRecord, error) {
	args := m.Called(ctx, kind, userID)
	var list []models.CallRecord
	if val := args.Get(0); val != nil {
		list = val.([]models.CallRecord)
	}
	return list, args.Error(1)
}
