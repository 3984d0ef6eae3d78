package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// UserDirectory is the slice of the profile service the relay depends on.
type UserDirectory interface {
	SetPresence(ctx context.Context, userID string, online bool) error
	PublicKey(ctx context.Context, userID string) (string, error)
}

// UserRepo reads the profile tables shared with the profile service.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// SetPresence records the online flag and bumps last_seen. Unknown users are ignored.
func (r *UserRepo) SetPresence(ctx context.Context, userID string, online bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_online=$2, last_seen=NOW() WHERE user_id=$1`, userID, online)
	return err
}

// PublicKey returns the key senders encrypt to.
func (r *UserRepo) PublicKey(ctx context.Context, userID string) (string, error) {
	var key string
	err := r.db.GetContext(ctx, &key, `SELECT public_key FROM users WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return key, err
}
