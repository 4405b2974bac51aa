// Package api serves the HTTP JSON endpoints of the chat.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/auth"
	"github.com/bdu-chat/campus-chat/internal/events"
	"github.com/bdu-chat/campus-chat/internal/faculty"
	"github.com/bdu-chat/campus-chat/internal/models"
	"github.com/gin-gonic/gin"
)

// Chat is the part of the chat service the HTTP API reads and writes
type Chat interface {
	ListRoom(ctx context.Context, viewerID uint, faculty string) ([]events.RoomMessage, error)
	ListDirect(ctx context.Context, viewerID, otherID uint) ([]events.DirectMessage, error)
	Block(ctx context.Context, blockerID, blockedID uint) error
	Report(ctx context.Context, reporterID, reportedID uint, reason string) (*models.Report, error)
}

// SettingsReader reads admin-owned text settings
type SettingsReader interface {
	Value(ctx context.Context, key string) (string, error)
}

// Catalog lists the known faculties
type Catalog interface {
	List() []faculty.Faculty
}

// ListFacultiesHandler returns the faculty catalog
func ListFacultiesHandler(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, catalog.List())
	}
}

// SettingHandler returns one admin setting as {field: value}
func SettingHandler(settings SettingsReader, key, field string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := settings.Value(c.Request.Context(), key)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{field: value})
	}
}

// ListRoomHandler returns a faculty room's history as seen by the viewer
func ListRoomHandler(chat Chat, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := chat.ListRoom(c.Request.Context(), viewerID(c), c.Param("faculty"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

// ListDirectHandler returns the viewer's conversation with :userId
func ListDirectHandler(chat Chat, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		otherID, ok := userParam(c)
		if !ok {
			return
		}

		msgs, err := chat.ListDirect(c.Request.Context(), viewerID(c), otherID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

// BlockHandler blocks :userId for the viewer
func BlockHandler(chat Chat, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		blockedID, ok := userParam(c)
		if !ok {
			return
		}

		if err := chat.Block(c.Request.Context(), viewerID(c), blockedID); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type reportRequest struct {
	Reason string `json:"reason"`
}

// ReportHandler files a report against :userId. The body is optional.
func ReportHandler(chat Chat, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reportedID, ok := userParam(c)
		if !ok {
			return
		}

		var req reportRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if _, err := chat.Report(c.Request.Context(), viewerID(c), reportedID, req.Reason); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func viewerID(c *gin.Context) uint {
	return c.GetUint(auth.SessionUserKey)
}

func userParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	code, message := apperr.Public(err)
	if code == apperr.CodeStoreUnavailable {
		logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": message, "code": code})
}
