package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
)

// AdminKeyHeader carries the operator key
const AdminKeyHeader = "X-Admin-Key"

// AdminKey lets a request through only when X-Admin-Key matches key.
// An empty key disables the guarded routes entirely.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
			return
		}
		given := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			logger.Warn(c.Request.Context()).
				Str("ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Msg("Admin key rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}
		c.Next()
	}
}
