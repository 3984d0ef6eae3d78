package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"relay-service/internal/models"
	"relay-service/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendDirect(ctx context.Context, msg models.NewDirectMessage) (models.DirectMessage, error) {
	args := m.Called(ctx, msg)
	var out models.DirectMessage
	if val := args.Get(0); val != nil {
		out = val.(models.DirectMessage)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) ListConversation(ctx context.Context, userA, userB string) ([]models.DirectMessage, error) {
	args := m.Called(ctx, userA, userB)
	var msgs []models.DirectMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.DirectMessage)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, senderID, recipientID string) (int64, error) {
	args := m.Called(ctx, senderID, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) DeleteConversation(ctx context.Context, userA, userB string) (int64, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) ListConversationSummaries(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) ListContacts(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, in repositories.NewGroup) (repositories.CreateGroupResult, error) {
	args := m.Called(ctx, in)
	var res repositories.CreateGroupResult
	if val := args.Get(0); val != nil {
		res = val.(repositories.CreateGroupResult)
	}
	return res, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID string) ([]models.GroupSummary, error) {
	args := m.Called(ctx, userID)
	var groups []models.GroupSummary
	if val := args.Get(0); val != nil {
		groups = val.([]models.GroupSummary)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID, userID string) (models.GroupDetail, error) {
	args := m.Called(ctx, groupID, userID)
	var detail models.GroupDetail
	if val := args.Get(0); val != nil {
		detail = val.(models.GroupDetail)
	}
	return detail, args.Error(1)
}

func (m *GroupRepositoryMock) MembersExcept(ctx context.Context, groupID, userID string) ([]string, error) {
	args := m.Called(ctx, groupID, userID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

func (m *GroupMessageRepositoryMock) AppendGroup(ctx context.Context, groupID, senderID, ciphertext string) (models.GroupMessage, error) {
	args := m.Called(ctx, groupID, senderID, ciphertext)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) ListGroup(ctx context.Context, groupID string) ([]models.GroupMessage, error) {
	args := m.Called(ctx, groupID)
	var msgs []models.GroupMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.GroupMessage)
	}
	return msgs, args.Error(1)
}

type UserDirectoryMock struct {
	mock.Mock
}

func (m *UserDirectoryMock) SetPresence(ctx context.Context, userID string, online bool) error {
	args := m.Called(ctx, userID, online)
	return args.Error(0)
}

func (m *UserDirectoryMock) PublicKey(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.GroupRepository = (*GroupRepositoryMock)(nil)
var _ repositories.GroupMessageRepository = (*GroupMessageRepositoryMock)(nil)
var _ repositories.UserDirectory = (*UserDirectoryMock)(nil)
