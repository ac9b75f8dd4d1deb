package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards a group when a key is configured; an empty key leaves it open.
func AdminKey(required string, logger zerolog.Logger) gin.HandlerFunc {
	want := []byte(required)
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(AdminKeyHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			logger.Warn().
				Str("request_id", c.GetString(RequestIDHeader)).
				Str("path", c.Request.URL.Path).
				Bool("key_present", len(got) > 0).
				Msg("admin key rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid admin key",
					"details": nil,
				},
			})
			return
		}
		c.Next()
	}
}
