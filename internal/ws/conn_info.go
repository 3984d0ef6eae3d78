package ws

import (
	"time"

	"github.com/google/uuid"
)

// ConnInfo is the metadata recorded when a session is accepted.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
