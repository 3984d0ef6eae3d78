package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-service/internal/repositories"
)

// UserHandler exposes read-only lookups against the user directory.
type UserHandler struct {
	users repositories.UserDirectory
}

func NewUserHandler(users repositories.UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

// PublicKey handles GET /api/users/:user_id/key.
func (h *UserHandler) PublicKey(c *gin.Context) {
	userID := c.Param("user_id")
	key, err := h.users.PublicKey(c.Request.Context(), userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "public_key": key})
}
