package middleware

import (
	"net/http"
	"strings"

	"github.com/Jancy0713/jancy-template-end/backend/internal/config"
	"github.com/Jancy0713/jancy-template-end/backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

// BlacklistChecker reports whether a presented access token was revoked.
type BlacklistChecker func(c *gin.Context, token string) (bool, error)

// AuthMiddleware verifies the bearer token, rejects blacklisted ones, and
// injects user_id into the request context.
func AuthMiddleware(cfg *config.JWTConfig, isBlacklisted BlacklistChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := utils.ParseJWT(token, cfg.Secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		if tokenType, _ := claims["type"].(string); tokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token type"})
			return
		}

		if isBlacklisted != nil {
			revoked, err := isBlacklisted(c, token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to verify token"})
				return
			}
			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		userIDStr, _ := claims["user_id"].(string)
		userID, err := uuid.FromString(userIDStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}

		c.Set("user_id", userID.String())
		c.Set("access_token", token)
		c.Next()
	}
}

// CurrentUserID reads the authenticated user id the auth middleware set.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	str, ok := value.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.FromString(str)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
