package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"relay-service/internal/mocks"
	"relay-service/internal/models"
	"relay-service/internal/ws"
)

// A direct message sent over HTTP reaches the recipient's live session, and a
// read receipt from the recipient reaches the sender.
func TestDirectMessageReachesLiveRecipient(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	groups := new(mocks.GroupRepositoryMock)
	users := new(mocks.UserDirectoryMock)
	users.On("SetPresence", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	messages.On("ListContacts", mock.Anything, mock.Anything).Return([]string{}, nil)

	registry := ws.NewRegistry()
	router := ws.NewRouter(registry, messages, groups, users, nil, zerolog.Nop())

	engine := newTestEngine()
	engine.GET("/ws/:user_id", ws.NewHandler(router, time.Second, zerolog.Nop()).Handle)
	msgHandler := NewMessageHandler(messages, router, nil, zerolog.Nop())
	engine.POST("/api/messages", withUser("sender_id"), msgHandler.SendMessage)

	srv := httptest.NewServer(engine)
	defer srv.Close()
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")

	alice, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws/alice", nil)
	require.NoError(t, err)
	defer alice.Close()
	bob, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws/bob", nil)
	require.NoError(t, err)
	defer bob.Close()
	require.Eventually(t, func() bool { return registry.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	messages.On("AppendDirect", mock.Anything, mock.Anything).Return(models.DirectMessage{
		ID: 42, SenderID: "alice", RecipientID: "bob", CiphertextForRecipient: "ctB", CiphertextForSender: "ctA",
	}, nil).Once()
	messages.On("MarkRead", mock.Anything, "alice", "bob").Return(int64(1), nil).Once()

	body := bytes.NewBufferString(`{"recipient_id":"bob","encrypted_content":"ctB","encrypted_for_sender":"ctA"}`)
	resp, err := http.Post(srv.URL+"/api/messages?sender_id=alice", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env models.Envelope
	require.NoError(t, bob.ReadJSON(&env))
	require.Equal(t, models.EventNewMessage, env.Type)
	var evt models.NewMessageEvent
	require.NoError(t, json.Unmarshal(env.Data, &evt))
	assert.Equal(t, models.NewMessageEvent{MessageID: 42, SenderID: "alice", Ciphertext: "ctB"}, evt)

	require.NoError(t, bob.WriteJSON(models.NewEnvelope(models.EventRead, models.ReadRequest{SenderID: "alice"})))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, alice.ReadJSON(&env))
	assert.Equal(t, models.EventMessagesRead, env.Type)
	var receipt models.MessagesReadEvent
	require.NoError(t, env.Decode(&receipt))
	assert.Equal(t, "bob", receipt.ReaderID)
}
