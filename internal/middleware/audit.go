package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/middleware/requestid"
)

// AuditRecorder receives audit entries for successful admin mutations.
type AuditRecorder interface {
	Record(entry models.AuditLog)
}

// Audit records an audit entry after the handler succeeds. Failed requests are not recorded.
func Audit(recorder AuditRecorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}

		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"latency": time.Since(start).Milliseconds(),
		})

		recorder.Record(models.AuditLog{
			RequestID:  requestid.Value(c),
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Details:    details,
			Status:     c.Writer.Status(),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
			CreatedAt:  start,
		})
	}
}
