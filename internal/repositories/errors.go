package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrBlocked is returned when the recipient has blocked the sender. Nothing is written.
	ErrBlocked = errors.New("sender is blocked by recipient")
	// ErrReplyNotFound is returned when reply_to_id names a message that does not exist.
	ErrReplyNotFound = errors.New("reply target not found")
	ErrGroupNotFound = errors.New("group not found")
	ErrUserNotFound  = errors.New("user not found")
)

const pqForeignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}
