package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"relay-service/internal/telemetry"
	"relay-service/internal/ws"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, registry *ws.Registry, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/sessions", func(c *gin.Context) {
		users := make([]string, 0)
		for _, ch := range registry.Snapshot() {
			users = append(users, ch.UserID())
		}
		sort.Strings(users)
		c.JSON(http.StatusOK, gin.H{"active": len(users), "users": users})
	})

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c), nil)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
