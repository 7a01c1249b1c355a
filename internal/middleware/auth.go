package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"proximity-sync/internal/identity"
)

// UIDContextKey is where the authenticated uid is stored on the request
// context.
const UIDContextKey = "uid"

// AuthMiddleware validates the Authorization header against the identity
// verifier and stores the resolved uid.
func AuthMiddleware(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		uid, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UIDContextKey, uid)
		c.Next()
	}
}
