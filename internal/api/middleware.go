package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/heartconomy/heartledger/internal/auth"
)

// actorKey is the gin context key holding the authenticated account ID
const actorKey = "actorID"

// AuthMiddleware verifies the Bearer token and stores the acting account
// ID on the request context.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		accountID, err := tokens.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(actorKey, accountID)
		c.Next()
	}
}

// actorID returns the authenticated account ID set by AuthMiddleware
func actorID(c *gin.Context) string {
	return c.GetString(actorKey)
}
