package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionUserKey is the session and context key holding the viewer's user id
const SessionUserKey = "user_id"

// RequireAuth is a middleware that ensures the user is authenticated
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := toUserID(session.Get(SessionUserKey))

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// User is authenticated - set context values for downstream handlers
		c.Set(SessionUserKey, userID)

		c.Next()
	}
}

// toUserID accepts the integer shapes a session codec may hand back
func toUserID(v any) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, id > 0
	case int:
		return uint(id), id > 0
	case int64:
		return uint(id), id > 0
	case uint64:
		return uint(id), id > 0
	case float64:
		return uint(id), id > 0
	default:
		return 0, false
	}
}
