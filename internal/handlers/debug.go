package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messenger-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}

		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		var userID *int64
		if id, err := strconv.ParseInt(c.Query("user_id"), 10, 64); err == nil && id > 0 {
			userID = &id
		}

		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestID, userID)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
