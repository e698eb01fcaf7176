package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom-service/internal/services"
	"chatroom-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, reconciler *services.Reconciler, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/reconcile", func(c *gin.Context) {
		report, err := reconciler.Scan(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reconcile scan failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"consistent": report.Consistent(), "report": report})
	})

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), verifiedUserID(c), "")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
