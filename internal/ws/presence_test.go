package ws

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"relay-service/internal/mocks"
	"relay-service/internal/models"
)

type recordingPusher struct {
	calls   []string
	outcome map[string]Outcome
}

func (p *recordingPusher) Push(_ context.Context, userID string, env models.Envelope) Outcome {
	p.calls = append(p.calls, userID+":"+env.Type)
	if o, ok := p.outcome[userID]; ok {
		return o
	}
	return Offline
}

func TestAnnounceOfflineSkipsSelfAndCountsDelivered(t *testing.T) {
	contacts := new(mocks.MessageRepositoryMock)
	status := new(mocks.UserDirectoryMock)
	pusher := &recordingPusher{outcome: map[string]Outcome{"p1": Delivered}}
	contacts.On("ListContacts", mock.Anything, "u").Return([]string{"p1", "p2", "u"}, nil).Once()

	delivered := NewPresence(contacts, status, pusher, zerolog.Nop()).Announce(context.Background(), "u", false)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"p1:user_offline", "p2:user_offline"}, pusher.calls)
	status.AssertNotCalled(t, "SetPresence", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPersistsFlag(t *testing.T) {
	contacts := new(mocks.MessageRepositoryMock)
	status := new(mocks.UserDirectoryMock)
	status.On("SetPresence", mock.Anything, "u", false).Return(nil).Once()

	NewPresence(contacts, status, &recordingPusher{}, zerolog.Nop()).Record(context.Background(), "u", false)

	status.AssertExpectations(t)
	contacts.AssertNotCalled(t, "ListContacts", mock.Anything, mock.Anything)
}

func TestRecordErrorDoesNotStopAnnounce(t *testing.T) {
	contacts := new(mocks.MessageRepositoryMock)
	status := new(mocks.UserDirectoryMock)
	pusher := &recordingPusher{outcome: map[string]Outcome{"p1": Delivered}}
	contacts.On("ListContacts", mock.Anything, "u").Return([]string{"p1"}, nil).Once()
	status.On("SetPresence", mock.Anything, "u", true).Return(errors.New("db down")).Once()

	presence := NewPresence(contacts, status, pusher, zerolog.Nop())
	presence.Record(context.Background(), "u", true)
	delivered := presence.Announce(context.Background(), "u", true)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"p1:user_online"}, pusher.calls)
}

func TestAnnounceContactLookupErrorPushesNothing(t *testing.T) {
	contacts := new(mocks.MessageRepositoryMock)
	status := new(mocks.UserDirectoryMock)
	pusher := &recordingPusher{}
	contacts.On("ListContacts", mock.Anything, "u").Return(nil, errors.New("db down")).Once()

	delivered := NewPresence(contacts, status, pusher, zerolog.Nop()).Announce(context.Background(), "u", true)

	assert.Zero(t, delivered)
	assert.Empty(t, pusher.calls)
}
