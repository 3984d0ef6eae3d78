package models

import "time"

// DeleteMode is the client-chosen retention policy tag stored with a direct message.
// The relay records it but never acts on it.
type DeleteMode string

// DeleteModeNever is applied when the sender does not pick a policy.
const DeleteModeNever DeleteMode = "never"

// DirectMessage is a dual-encrypted message between two users.
type DirectMessage struct {
	ID                     int64      `db:"id" json:"id"`
	SenderID               string     `db:"sender_id" json:"sender_id"`
	RecipientID            string     `db:"recipient_id" json:"recipient_id"`
	CiphertextForRecipient string     `db:"encrypted_content" json:"encrypted_content"`
	CiphertextForSender    string     `db:"encrypted_for_sender" json:"encrypted_for_sender"`
	ReplyToID              *int64     `db:"reply_to_id" json:"reply_to_id"`
	DeleteMode             DeleteMode `db:"delete_mode" json:"delete_mode"`
	IsRead                 bool       `db:"is_read" json:"is_read"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`

	// Populated from the reply target on conversation reads; nil when there is no reply.
	ReplySenderID               *string `db:"reply_sender_id" json:"reply_sender_id"`
	ReplyCiphertextForRecipient *string `db:"reply_encrypted_content" json:"reply_encrypted_content"`
	ReplyCiphertextForSender    *string `db:"reply_encrypted_for_sender" json:"reply_encrypted_for_sender"`
}

// NewDirectMessage carries the fields a sender supplies.
type NewDirectMessage struct {
	SenderID               string
	RecipientID            string
	CiphertextForRecipient string
	CiphertextForSender    string
	ReplyToID              *int64
	DeleteMode             DeleteMode
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	CounterpartID string    `db:"counterpart_id" json:"user_id"`
	DisplayName   *string   `db:"display_name" json:"display_name"`
	Avatar        *string   `db:"avatar" json:"avatar"`
	IsOnline      bool      `db:"is_online" json:"is_online"`
	Nickname      *string   `db:"nickname" json:"nickname"`
	UnreadCount   int       `db:"unread_count" json:"unread_count"`
	LastActivity  time.Time `db:"last_activity" json:"last_message_at"`
}
