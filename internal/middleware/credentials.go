package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal/pkg/upstream"
)

// ForwardCredentials carries the caller's Cookie header into the request context so
// backend calls run under the caller's session. The portal never inspects it.
func ForwardCredentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie := c.GetHeader("Cookie"); cookie != "" {
			c.Request = c.Request.WithContext(upstream.WithCookie(c.Request.Context(), cookie))
		}
		c.Next()
	}
}
