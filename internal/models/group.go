package models

import "time"

// Group is an encrypted group chat. Members share one symmetric key that the
// relay only ever sees wrapped per member.
type Group struct {
	ID        string    `db:"group_id" json:"group_id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	Avatar    *string   `db:"avatar" json:"avatar"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupSummary is a group as listed for one member.
type GroupSummary struct {
	ID          string  `db:"group_id" json:"group_id"`
	Name        string  `db:"name" json:"name"`
	Avatar      *string `db:"avatar" json:"avatar"`
	MemberCount int     `db:"member_count" json:"member_count"`
}

// GroupDetail is a group together with the caller's own wrapped group key.
type GroupDetail struct {
	Group
	EncryptedGroupKey string `db:"encrypted_group_key" json:"encrypted_group_key"`
	MemberCount       int    `db:"member_count" json:"member_count"`
}

// GroupMessage is a message encrypted under the shared group key.
type GroupMessage struct {
	ID         int64     `db:"id" json:"id"`
	GroupID    string    `db:"group_id" json:"group_id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	Ciphertext string    `db:"encrypted_content" json:"encrypted_content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	SenderName *string   `db:"sender_name" json:"sender_name,omitempty"`
}
