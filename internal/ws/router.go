package ws

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"relay-service/internal/models"
	"relay-service/internal/observability"
	"relay-service/internal/repositories"
	"relay-service/internal/telemetry"
)

// Outcome is the result of a best-effort push. It is informational only:
// no durable operation fails because a push did not land.
type Outcome int

const (
	Delivered Outcome = iota
	Offline
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Offline:
		return "offline"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	wsRoutingKey  = "ws_events.users"
	presenceLocks = 64
)

// Router owns the live sessions and routes real-time events to them.
type Router struct {
	registry *Registry
	messages repositories.MessageRepository
	groups   repositories.GroupRepository
	presence *Presence
	events   telemetry.Publisher
	logger   zerolog.Logger

	// statusMu orders a user's registry change with its durable presence write.
	statusMu [presenceLocks]sync.Mutex
}

// NewRouter wires a router around an injected registry. events may be nil.
func NewRouter(registry *Registry, messages repositories.MessageRepository, groups repositories.GroupRepository, users repositories.UserDirectory, events telemetry.Publisher, logger zerolog.Logger) *Router {
	r := &Router{
		registry: registry,
		messages: messages,
		groups:   groups,
		events:   events,
		logger:   logger,
	}
	r.presence = NewPresence(messages, users, r, logger)
	return r
}

// Connect registers ch, closes whatever session it supersedes and announces
// the user online.
func (r *Router) Connect(ctx context.Context, ch Channel) {
	mu := r.userLock(ch.UserID())
	mu.Lock()
	prev := r.registry.Register(ch.UserID(), ch)
	r.presence.Record(ctx, ch.UserID(), true)
	mu.Unlock()

	if prev != nil {
		r.logger.Debug().Str("user_id", ch.UserID()).Msg("session superseded")
		_ = prev.Close()
	}
	observability.SetWSActive(r.registry.Count())
	observability.IncWSEvent("ws_connect")
	r.publishLifecycle(ctx, ch, "ws_connect", "")

	r.presence.Announce(ctx, ch.UserID(), true)
}

// Disconnect removes ch and announces the user offline. Only the call that
// actually removes the registration has side effects, so concurrent triggers
// (read error, failed push, shutdown) collapse into one, and a superseded
// session never announces its successor offline. The offline write is
// serialised with Connect for the same user, so a fast reconnect always
// leaves the durable flag online.
func (r *Router) Disconnect(ctx context.Context, ch Channel, reason string) {
	mu := r.userLock(ch.UserID())
	mu.Lock()
	if !r.registry.Unregister(ch.UserID(), ch) {
		mu.Unlock()
		return
	}
	r.presence.Record(ctx, ch.UserID(), false)
	mu.Unlock()

	observability.SetWSActive(r.registry.Count())
	observability.IncWSEvent("ws_disconnect")
	r.publishLifecycle(ctx, ch, "ws_disconnect", reason)

	if _, ok := r.registry.Lookup(ch.UserID()); ok {
		r.logger.Debug().Str("user_id", ch.UserID()).Msg("reconnected before offline broadcast")
		return
	}
	r.presence.Announce(ctx, ch.UserID(), false)
}

func (r *Router) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &r.statusMu[h.Sum32()%presenceLocks]
}

// Push delivers env to the user's live session. A failed write is treated as
// a disconnect of that session.
func (r *Router) Push(ctx context.Context, userID string, env models.Envelope) Outcome {
	ch, ok := r.registry.Lookup(userID)
	if !ok {
		observability.IncPush(env.Type, Offline.String())
		return Offline
	}
	return r.sendOrDrop(ctx, ch, env)
}

// sendOrDrop writes env to ch, closing and disconnecting it if the write fails.
func (r *Router) sendOrDrop(ctx context.Context, ch Channel, env models.Envelope) Outcome {
	if err := ch.Send(env); err != nil {
		observability.IncPush(env.Type, Failed.String())
		observability.IncWSEvent("ws_error")
		r.logger.Debug().Err(err).Str("user_id", ch.UserID()).Str("type", env.Type).Msg("push failed")
		r.publishLifecycle(ctx, ch, "ws_error", err.Error())
		_ = ch.Close()
		r.Disconnect(ctx, ch, err.Error())
		return Failed
	}

	observability.IncPush(env.Type, Delivered.String())
	return Delivered
}

// HandleInbound processes one client frame. Unknown types and frames missing
// their required field are ignored.
func (r *Router) HandleInbound(ctx context.Context, ch Channel, env models.Envelope) {
	switch env.Type {
	case models.EventPing:
		r.sendOrDrop(ctx, ch, models.NewEnvelope(models.EventPong, nil))

	case models.EventTyping:
		var req models.TypingRequest
		if err := env.Decode(&req); err != nil || req.RecipientID == "" {
			r.logger.Debug().Str("user_id", ch.UserID()).Msg("typing without recipient")
			return
		}
		r.Push(ctx, req.RecipientID, models.NewEnvelope(models.EventTyping, models.TypingEvent{SenderID: ch.UserID()}))

	case models.EventRead:
		var req models.ReadRequest
		if err := env.Decode(&req); err != nil || req.SenderID == "" {
			r.logger.Debug().Str("user_id", ch.UserID()).Msg("read without sender")
			return
		}
		if _, err := r.messages.MarkRead(ctx, req.SenderID, ch.UserID()); err != nil {
			r.logger.Error().Err(err).Str("sender_id", req.SenderID).Str("reader_id", ch.UserID()).Msg("mark read failed")
			return
		}
		r.Push(ctx, req.SenderID, models.NewEnvelope(models.EventMessagesRead, models.MessagesReadEvent{ReaderID: ch.UserID()}))

	default:
		r.logger.Debug().Str("user_id", ch.UserID()).Str("type", env.Type).Msg("ignoring inbound event")
	}
}

// NotifyNewMessage pushes a committed direct message to its recipient.
func (r *Router) NotifyNewMessage(ctx context.Context, msg models.DirectMessage) Outcome {
	return r.Push(ctx, msg.RecipientID, models.NewEnvelope(models.EventNewMessage, models.NewMessageEvent{
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		Ciphertext: msg.CiphertextForRecipient,
	}))
}

// NotifyGroupMessage fans a committed group message out to every other
// member. It returns the number of delivered pushes.
func (r *Router) NotifyGroupMessage(ctx context.Context, msg models.GroupMessage) int {
	members, err := r.groups.MembersExcept(ctx, msg.GroupID, msg.SenderID)
	if err != nil {
		r.logger.Warn().Err(err).Str("group_id", msg.GroupID).Msg("fan-out member lookup failed")
		return 0
	}
	env := models.NewEnvelope(models.EventGroupMessage, models.GroupMessageEvent{GroupID: msg.GroupID, MessageID: msg.ID})
	return r.fanOut(ctx, members, env)
}

// NotifyGroupAdded tells newly added members about the group.
func (r *Router) NotifyGroupAdded(ctx context.Context, group models.Group, members []string) int {
	env := models.NewEnvelope(models.EventGroupAdded, models.GroupAddedEvent{GroupID: group.ID, Name: group.Name})
	return r.fanOut(ctx, members, env)
}

func (r *Router) fanOut(ctx context.Context, members []string, env models.Envelope) int {
	observability.ObserveFanout(env.Type, len(members))
	delivered := 0
	for _, id := range members {
		if r.Push(ctx, id, env) == Delivered {
			delivered++
		}
	}
	return delivered
}

// Shutdown closes every live session and runs its disconnect path.
func (r *Router) Shutdown(ctx context.Context) {
	for _, ch := range r.registry.Snapshot() {
		_ = ch.Close()
		r.Disconnect(ctx, ch, "server shutdown")
	}
}

// infoCarrier is implemented by channels that know their connection metadata.
type infoCarrier interface {
	Info() ConnInfo
}

func (r *Router) publishLifecycle(ctx context.Context, ch Channel, event, reason string) {
	if r.events == nil {
		return
	}
	info := ConnInfo{UserID: ch.UserID()}
	if c, ok := ch.(infoCarrier); ok {
		info = c.Info()
	}
	var duration int64
	if !info.ConnectedAt.IsZero() {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}

	err := r.events.Publish(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: observability.WSPayload{
			WS: observability.WSDetail{
				Event:      event,
				ConnID:     info.ConnID,
				DurationMS: duration,
				Reason:     reason,
			},
			Identity: observability.Identity{
				UserID:   info.UserID,
				DeviceID: info.DeviceID,
				IP:       info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Debug().Err(err).Str("event", event).Msg("lifecycle publish failed")
	}
}
