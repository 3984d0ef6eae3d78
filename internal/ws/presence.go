package ws

import (
	"context"

	"github.com/rs/zerolog"

	"relay-service/internal/models"
	"relay-service/internal/observability"
)

// Pusher delivers a best-effort event to a user's live session.
type Pusher interface {
	Push(ctx context.Context, userID string, env models.Envelope) Outcome
}

// ContactSource derives a user's contacts from their message history.
type ContactSource interface {
	ListContacts(ctx context.Context, userID string) ([]string, error)
}

// StatusStore persists the online flag and last-seen time.
type StatusStore interface {
	SetPresence(ctx context.Context, userID string, online bool) error
}

// Presence announces online/offline transitions to a user's contacts.
//
// A contact is anyone the user has exchanged a direct message with; there is
// no separate contact list. Offline contacts simply miss the event.
type Presence struct {
	contacts ContactSource
	status   StatusStore
	pusher   Pusher
	logger   zerolog.Logger
}

func NewPresence(contacts ContactSource, status StatusStore, pusher Pusher, logger zerolog.Logger) *Presence {
	return &Presence{contacts: contacts, status: status, pusher: pusher, logger: logger}
}

// Record persists the online flag. Failures are logged, never returned.
func (p *Presence) Record(ctx context.Context, userID string, online bool) {
	if err := p.status.SetPresence(ctx, userID, online); err != nil {
		p.logger.Warn().Err(err).Str("user_id", userID).Bool("online", online).Msg("presence update failed")
	}
}

// Announce pushes user_online or user_offline to every contact and returns
// how many pushes were delivered.
func (p *Presence) Announce(ctx context.Context, userID string, online bool) int {
	observability.IncPresence(online)
	contacts, err := p.contacts.ListContacts(ctx, userID)
	if err != nil {
		p.logger.Warn().Err(err).Str("user_id", userID).Msg("list contacts failed")
		return 0
	}

	eventType := models.EventUserOffline
	if online {
		eventType = models.EventUserOnline
	}
	env := models.NewEnvelope(eventType, models.PresenceEvent{UserID: userID})

	delivered := 0
	for _, contactID := range contacts {
		if contactID == userID {
			continue
		}
		if p.pusher.Push(ctx, contactID, env) == Delivered {
			delivered++
		}
	}
	return delivered
}
