package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"relay-service/internal/models"
)

// GroupMessageRepository stores group ciphertexts.
type GroupMessageRepository interface {
	AppendGroup(ctx context.Context, groupID, senderID, ciphertext string) (models.GroupMessage, error)
	ListGroup(ctx context.Context, groupID string) ([]models.GroupMessage, error)
}

// GroupMessageRepo is a sqlx-backed implementation.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

// AppendGroup persists a group message.
func (r *GroupMessageRepo) AppendGroup(ctx context.Context, groupID, senderID, ciphertext string) (models.GroupMessage, error) {
	var msg models.GroupMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO group_messages (group_id, sender_id, encrypted_content) VALUES ($1, $2, $3)
        RETURNING id, group_id, sender_id, encrypted_content, created_at`, groupID, senderID, ciphertext).
		StructScan(&msg)
	if err != nil && isForeignKeyViolation(err) {
		return models.GroupMessage{}, ErrGroupNotFound
	}
	return msg, err
}

// ListGroup returns messages ordered by creation with the sender's display name when known.
func (r *GroupMessageRepo) ListGroup(ctx context.Context, groupID string) ([]models.GroupMessage, error) {
	msgs := []models.GroupMessage{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT gm.id, gm.group_id, gm.sender_id, gm.encrypted_content, gm.created_at,
            u.display_name AS sender_name
        FROM group_messages gm
        LEFT JOIN users u ON u.user_id = gm.sender_id
        WHERE gm.group_id=$1
        ORDER BY gm.created_at ASC, gm.id ASC`, groupID)
	return msgs, err
}
