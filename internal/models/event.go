package models

import "encoding/json"

// Real-time event types carried in Envelope.Type.
const (
	EventPing         = "ping"
	EventPong         = "pong"
	EventTyping       = "typing"
	EventRead         = "read"
	EventUserOnline   = "user_online"
	EventUserOffline  = "user_offline"
	EventNewMessage   = "new_message"
	EventGroupAdded   = "group_added"
	EventGroupMessage = "group_message"
	EventMessagesRead = "messages_read"
)

// Envelope is the frame exchanged over a websocket session in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an envelope of the given type. A nil data
// yields an envelope with no payload.
func NewEnvelope(eventType string, data any) Envelope {
	if data == nil {
		return Envelope{Type: eventType}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{Type: eventType}
	}
	return Envelope{Type: eventType, Data: raw}
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// PresenceEvent is the payload of user_online and user_offline.
type PresenceEvent struct {
	UserID string `json:"user_id"`
}

// TypingRequest is the inbound typing payload.
type TypingRequest struct {
	RecipientID string `json:"recipient_id"`
}

// TypingEvent is pushed to the recipient of a typing indicator.
type TypingEvent struct {
	SenderID string `json:"sender_id"`
}

// ReadRequest is the inbound read-receipt payload.
type ReadRequest struct {
	SenderID string `json:"sender_id"`
}

// MessagesReadEvent tells a sender that their messages were read.
type MessagesReadEvent struct {
	ReaderID string `json:"reader_id"`
}

// NewMessageEvent announces a committed direct message to its recipient.
type NewMessageEvent struct {
	MessageID  int64  `json:"message_id"`
	SenderID   string `json:"sender_id"`
	Ciphertext string `json:"encrypted_content"`
}

// GroupMessageEvent announces a committed group message to members.
type GroupMessageEvent struct {
	GroupID   string `json:"group_id"`
	MessageID int64  `json:"message_id"`
}

// GroupAddedEvent tells a user they were added to a group.
type GroupAddedEvent struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
}
