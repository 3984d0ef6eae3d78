package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the caller's user id.
const UserIDKey = "userID"

// Identity reads the caller's id from the named query parameter and stores it
// under UserIDKey. Authentication happens upstream of the relay.
func Identity(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query(param)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + param})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
