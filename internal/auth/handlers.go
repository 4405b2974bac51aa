package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/directory"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// UserLookup resolves a user id to its profile
type UserLookup interface {
	Lookup(ctx context.Context, id uint) (directory.Profile, error)
}

// HandleLogout clears the session
func HandleLogout(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		session.Clear()

		if err := session.Save(); err != nil {
			logger.Error("Session clear error", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// HandleDevSession signs in as an existing user without credentials. It is
// only routed outside production.
func HandleDevSession(users UserLookup, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("userId"), 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		profile, err := users.Lookup(c.Request.Context(), uint(id))
		if err != nil {
			_, message := apperr.Public(err)
			c.JSON(apperr.HTTPStatus(err), gin.H{"error": message})
			return
		}

		session := sessions.Default(c)
		session.Set(SessionUserKey, profile.ID)
		if err := session.Save(); err != nil {
			logger.Error("Session save error", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
			return
		}

		logger.Info("Development session started", "user_id", profile.ID)
		c.JSON(http.StatusOK, profile)
	}
}
