package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"relay-service/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler accepts websocket connections and runs one read loop per session.
type Handler struct {
	router       *Router
	writeTimeout time.Duration
	logger       zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(router *Router, writeTimeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{router: router, writeTimeout: writeTimeout, logger: logger}
}

// Handle upgrades GET /ws/:user_id and registers the session.
func (h *Handler) Handle(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user id"})
		return
	}

	ctx, span := otel.Tracer("relay-service/ws").Start(c.Request.Context(), "ws.handshake")
	traceID := span.SpanContext().TraceID().String()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		span.End()
		return
	}
	span.End()

	meta := observability.MetaFromRequest(c.Request)
	sess := NewSession(conn, ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}, h.writeTimeout)

	// The session outlives the upgrade request.
	sessCtx := context.WithoutCancel(ctx)
	h.router.Connect(sessCtx, sess)
	sess.MarkOpen()
	h.logger.Info().Str("user_id", userID).Str("conn_id", sess.Info().ConnID).Msg("session opened")

	go h.readLoop(sessCtx, sess)
}

func (h *Handler) readLoop(ctx context.Context, sess *Session) {
	var closeReason string
	defer func() {
		// StateClosed here means the server dropped the session first.
		state := sess.State()
		_ = sess.Close()
		h.router.Disconnect(ctx, sess, closeReason)
		h.logger.Info().
			Str("user_id", sess.UserID()).
			Str("conn_id", sess.Info().ConnID).
			Str("state", state.String()).
			Str("reason", closeReason).
			Msg("session closed")
	}()

	for {
		env, ok, err := sess.Read()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && sess.State() != StateClosed {
				observability.IncWSEvent("ws_error")
			}
			return
		}
		if !ok {
			continue
		}
		h.router.HandleInbound(ctx, sess, env)
	}
}
