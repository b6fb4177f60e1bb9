package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"termfolio/internal/auth"
)

const roleContextKey = "apiRole"

func RoleFromContext(c *gin.Context) (string, bool) {
	role, ok := c.Get(roleContextKey)
	if !ok {
		return "", false
	}
	value, ok := role.(string)
	return value, ok && value != ""
}

// apiKeyFromRequest prefers the apikey header and falls back to a bearer
// token.
func apiKeyFromRequest(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("apikey")); key != "" {
		return key
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func RequireAPIKey(cfg auth.KeyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := apiKeyFromRequest(c)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
			c.Abort()
			return
		}

		claims, err := auth.VerifyAPIKey(key, cfg)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Set(roleContextKey, claims.Role)
		c.Next()
	}
}

// RequireRole must run after RequireAPIKey.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := RoleFromContext(c)
		if !ok || got != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient privileges"})
			c.Abort()
			return
		}
		c.Next()
	}
}
