package handlers

import (
	"context"

	"relay-service/internal/models"
	"relay-service/internal/ws"
)

// Notifier pushes committed writes to live sessions. Pushes are best effort.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, msg models.DirectMessage) ws.Outcome
	NotifyGroupMessage(ctx context.Context, msg models.GroupMessage) int
	NotifyGroupAdded(ctx context.Context, group models.Group, members []string) int
}

var _ Notifier = (*ws.Router)(nil)
