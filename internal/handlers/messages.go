package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"relay-service/internal/models"
	"relay-service/internal/repositories"
	"relay-service/internal/telemetry"
)

// MessageHandler serves direct-message endpoints.
type MessageHandler struct {
	messages repositories.MessageRepository
	notifier Notifier
	audit    *telemetry.AuditEmitter
	logger   zerolog.Logger
}

// NewMessageHandler constructs a MessageHandler. audit may be nil.
func NewMessageHandler(messages repositories.MessageRepository, notifier Notifier, audit *telemetry.AuditEmitter, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, notifier: notifier, audit: audit, logger: logger}
}

type sendMessageRequest struct {
	RecipientID        string            `json:"recipient_id" binding:"required"`
	EncryptedContent   string            `json:"encrypted_content" binding:"required"`
	EncryptedForSender string            `json:"encrypted_for_sender" binding:"required"`
	ReplyToID          *int64            `json:"reply_to_id"`
	DeleteMode         models.DeleteMode `json:"delete_mode"`
}

// SendMessage handles POST /api/messages?sender_id=.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID := userIDFromContext(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.AppendDirect(c.Request.Context(), models.NewDirectMessage{
		SenderID:               senderID,
		RecipientID:            req.RecipientID,
		CiphertextForRecipient: req.EncryptedContent,
		CiphertextForSender:    req.EncryptedForSender,
		ReplyToID:              req.ReplyToID,
		DeleteMode:             req.DeleteMode,
	})
	switch {
	case errors.Is(err, repositories.ErrBlocked):
		emitAudit(c, h.audit, "WARN", "blocked send rejected", map[string]string{"recipient_id": req.RecipientID})
		c.JSON(http.StatusForbidden, gin.H{"error": "you are blocked by this user"})
		return
	case errors.Is(err, repositories.ErrReplyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "reply target not found"})
		return
	case err != nil:
		h.logger.Error().Err(err).Str("sender_id", senderID).Msg("append direct message failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store message"})
		return
	}

	h.notifier.NotifyNewMessage(c.Request.Context(), msg)
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "message_id": msg.ID})
}

// ListMessages handles GET /api/messages/:contact_id?user_id=.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID := userIDFromContext(c)
	msgs, err := h.messages.ListConversation(c.Request.Context(), userID, c.Param("contact_id"))
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("list conversation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// DeleteConversation handles DELETE /api/messages/:contact_id?user_id=.
// Both sides lose the history.
func (h *MessageHandler) DeleteConversation(c *gin.Context) {
	userID := userIDFromContext(c)
	contactID := c.Param("contact_id")
	removed, err := h.messages.DeleteConversation(c.Request.Context(), userID, contactID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("delete conversation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete"})
		return
	}

	emitAudit(c, h.audit, "INFO", "conversation deleted", map[string]string{
		"contact_id": contactID,
		"removed":    strconv.FormatInt(removed, 10),
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListConversations handles GET /api/conversations?user_id=.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	userID := userIDFromContext(c)
	convs, err := h.messages.ListConversationSummaries(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("list conversations failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}
