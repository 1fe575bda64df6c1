package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserChecker is the identity provider's existence check.
type UserChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// CurrentUser stops the request unless the token's user still exists. Use after AuthRequired.
func CurrentUser(users UserChecker, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !RequireExistingUser(c, users, GetUserID(c), log) {
			return
		}
		c.Next()
	}
}

// RequireExistingUser aborts the request and returns false unless userID
// names a user that still exists. Routes that authenticate outside
// AuthRequired, like the websocket upgrade, call it directly.
func RequireExistingUser(c *gin.Context, users UserChecker, userID string, log *slog.Logger) bool {
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	ok, err := users.Exists(c.Request.Context(), userID)
	if err != nil {
		log.Error("current user lookup failed", "user_id", userID, "error", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable", "code": "unavailable"})
		return false
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return false
	}
	return true
}
