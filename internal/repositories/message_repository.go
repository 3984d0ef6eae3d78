package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"relay-service/internal/models"
)

// MessageRepository stores encrypted direct messages.
type MessageRepository interface {
	AppendDirect(ctx context.Context, msg models.NewDirectMessage) (models.DirectMessage, error)
	ListConversation(ctx context.Context, userA, userB string) ([]models.DirectMessage, error)
	MarkRead(ctx context.Context, senderID, recipientID string) (int64, error)
	DeleteConversation(ctx context.Context, userA, userB string) (int64, error)
	ListConversationSummaries(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	ListContacts(ctx context.Context, userID string) ([]string, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendDirect checks the block relation and inserts the message in one transaction.
func (r *MessageRepo) AppendDirect(ctx context.Context, in models.NewDirectMessage) (msg models.DirectMessage, err error) {
	if in.DeleteMode == "" {
		in.DeleteMode = models.DeleteModeNever
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.DirectMessage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var blocked bool
	if err = tx.GetContext(ctx, &blocked, `SELECT EXISTS(SELECT 1 FROM blocked_users WHERE user_id=$1 AND blocked_user_id=$2)`, in.RecipientID, in.SenderID); err != nil {
		return models.DirectMessage{}, fmt.Errorf("check block: %w", err)
	}
	if blocked {
		err = ErrBlocked
		return models.DirectMessage{}, err
	}

	err = tx.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, recipient_id, encrypted_content, encrypted_for_sender, reply_to_id, delete_mode)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, sender_id, recipient_id, encrypted_content, encrypted_for_sender, reply_to_id, delete_mode, is_read, created_at`,
		in.SenderID, in.RecipientID, in.CiphertextForRecipient, in.CiphertextForSender, in.ReplyToID, in.DeleteMode).
		StructScan(&msg)
	if err != nil {
		if isForeignKeyViolation(err) {
			err = ErrReplyNotFound
			return models.DirectMessage{}, err
		}
		return models.DirectMessage{}, fmt.Errorf("insert message: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.DirectMessage{}, err
	}
	return msg, nil
}

// ListConversation returns both directions of a conversation, oldest first, with
// each reply joined to its target so clients can render it without a second fetch.
func (r *MessageRepo) ListConversation(ctx context.Context, userA, userB string) ([]models.DirectMessage, error) {
	query := `SELECT m.id, m.sender_id, m.recipient_id, m.encrypted_content, m.encrypted_for_sender,
            m.reply_to_id, m.delete_mode, m.is_read, m.created_at,
            r.sender_id AS reply_sender_id,
            r.encrypted_content AS reply_encrypted_content,
            r.encrypted_for_sender AS reply_encrypted_for_sender
        FROM messages m
        LEFT JOIN messages r ON r.id = m.reply_to_id
        WHERE (m.sender_id=$1 AND m.recipient_id=$2)
           OR (m.sender_id=$2 AND m.recipient_id=$1)
        ORDER BY m.created_at ASC, m.id ASC`
	msgs := []models.DirectMessage{}
	err := r.db.SelectContext(ctx, &msgs, query, userA, userB)
	return msgs, err
}

// MarkRead flags every unread message from sender to recipient as read.
func (r *MessageRepo) MarkRead(ctx context.Context, senderID, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE WHERE sender_id=$1 AND recipient_id=$2 AND is_read = FALSE`, senderID, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteConversation hard-deletes every message between the two users, for both of them.
func (r *MessageRepo) DeleteConversation(ctx context.Context, userA, userB string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages
        WHERE (sender_id=$1 AND recipient_id=$2)
           OR (sender_id=$2 AND recipient_id=$1)`, userA, userB)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListConversationSummaries aggregates unread count and last activity per counterpart,
// most recent first. A single statement keeps it consistent with concurrent appends.
func (r *MessageRepo) ListConversationSummaries(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	query := `WITH mine AS (
            SELECT CASE WHEN sender_id=$1 THEN recipient_id ELSE sender_id END AS counterpart_id,
                sender_id, recipient_id, is_read, created_at
            FROM messages
            WHERE sender_id=$1 OR recipient_id=$1
        ), agg AS (
            SELECT counterpart_id,
                COUNT(*) FILTER (WHERE recipient_id=$1 AND sender_id=counterpart_id AND is_read = FALSE) AS unread_count,
                MAX(created_at) AS last_activity
            FROM mine
            GROUP BY counterpart_id
        )
        SELECT a.counterpart_id, u.display_name, u.avatar, COALESCE(u.is_online, FALSE) AS is_online,
            n.nickname, a.unread_count, a.last_activity
        FROM agg a
        LEFT JOIN users u ON u.user_id = a.counterpart_id
        LEFT JOIN nicknames n ON n.user_id=$1 AND n.contact_id = a.counterpart_id
        ORDER BY a.last_activity DESC, a.counterpart_id ASC`
	summaries := []models.ConversationSummary{}
	err := r.db.SelectContext(ctx, &summaries, query, userID)
	return summaries, err
}

// ListContacts returns everyone the user has exchanged a direct message with.
func (r *MessageRepo) ListContacts(ctx context.Context, userID string) ([]string, error) {
	contacts := []string{}
	err := r.db.SelectContext(ctx, &contacts, `SELECT DISTINCT CASE WHEN sender_id=$1 THEN recipient_id ELSE sender_id END AS contact_id
        FROM messages
        WHERE sender_id=$1 OR recipient_id=$1
        ORDER BY contact_id`, userID)
	return contacts, err
}
