package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"relay-service/internal/repositories"
	"relay-service/internal/telemetry"
)

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	groups   repositories.GroupRepository
	messages repositories.GroupMessageRepository
	notifier Notifier
	audit    *telemetry.AuditEmitter
	logger   zerolog.Logger
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups repositories.GroupRepository, messages repositories.GroupMessageRepository, notifier Notifier, audit *telemetry.AuditEmitter, logger zerolog.Logger) *GroupHandler {
	return &GroupHandler{
		groups:   groups,
		messages: messages,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
	}
}

type createGroupRequest struct {
	Name          string            `json:"name" binding:"required"`
	MemberIDs     []string          `json:"member_ids"`
	EncryptedKeys map[string]string `json:"encrypted_keys"`
}

// CreateGroup handles POST /api/groups?user_id=. Members without a key in
// encrypted_keys are skipped.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := userIDFromContext(c)

	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.groups.CreateGroup(c.Request.Context(), repositories.NewGroup{
		Name:          req.Name,
		CreatorID:     userID,
		MemberIDs:     req.MemberIDs,
		EncryptedKeys: req.EncryptedKeys,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("create group failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.notifier.NotifyGroupAdded(c.Request.Context(), res.Group, res.AddedMembers)
	emitAudit(c, h.audit, "INFO", "group created", map[string]string{
		"group_id": res.Group.ID,
		"members":  strconv.Itoa(len(res.AddedMembers)),
	})
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "group_id": res.Group.ID})
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := userIDFromContext(c)
	groups, err := h.groups.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("list groups failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup returns the group together with the caller's encrypted group key.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	detail, err := h.groups.GetGroup(c.Request.Context(), c.Param("group_id"), userIDFromContext(c))
	if errors.Is(err, repositories.ErrGroupNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("get group failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// PostGroupMessage persists and fans out a group message.
func (h *GroupHandler) PostGroupMessage(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := userIDFromContext(c)
	if !h.requireMember(c, groupID, userID) {
		return
	}

	var req struct {
		EncryptedContent string `json:"encrypted_content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.AppendGroup(c.Request.Context(), groupID, userID, req.EncryptedContent)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("group_id", groupID).Msg("append group message failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.notifier.NotifyGroupMessage(c.Request.Context(), msg)
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "message_id": msg.ID})
}

// GetGroupMessages returns the group's history to members.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	groupID := c.Param("group_id")
	if !h.requireMember(c, groupID, userIDFromContext(c)) {
		return
	}

	msgs, err := h.messages.ListGroup(c.Request.Context(), groupID)
	if err != nil {
		h.logger.Error().Err(err).Str("group_id", groupID).Msg("list group messages failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *GroupHandler) requireMember(c *gin.Context, groupID, userID string) bool {
	member, err := h.groups.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.logger.Error().Err(err).Str("group_id", groupID).Msg("membership check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return false
	}
	if !member {
		emitAudit(c, h.audit, "WARN", "non-member group access", map[string]string{"group_id": groupID})
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return false
	}
	return true
}
