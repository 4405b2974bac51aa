// Package directory resolves user ids to the display fields attached to
// outgoing messages.
package directory

import (
	"context"
	"errors"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/models"
	"gorm.io/gorm"
)

// Profile is the read-only view of a user used for message enrichment
type Profile struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Faculty  string `json:"faculty"`
	Degree   string `json:"degree"`
	Course   string `json:"course"`
	Avatar   int    `json:"avatar"`
}

// Directory looks users up in the users table
type Directory struct {
	db *gorm.DB
}

// New creates a Directory.
func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// Lookup returns the profile for id, or a NOT_FOUND error.
func (d *Directory) Lookup(ctx context.Context, id uint) (Profile, error) {
	var user models.User
	err := d.db.WithContext(ctx).
		Select("id", "full_name", "faculty", "degree", "course", "avatar").
		First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return Profile{}, apperr.Unavailable("failed to look up user", err)
	}

	return Profile{
		ID:       user.ID,
		FullName: user.FullName,
		Faculty:  user.Faculty,
		Degree:   user.Degree,
		Course:   user.Course,
		Avatar:   user.Avatar,
	}, nil
}
