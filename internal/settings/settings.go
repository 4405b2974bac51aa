// Package settings reads the admin-owned configuration table. The chat core
// never writes it.
package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/filter"
	"github.com/bdu-chat/campus-chat/internal/models"
	"gorm.io/gorm"
)

// Setting keys
const (
	KeyFilterWords          = "filter_words"
	KeyGroupExpiryMinutes   = "group_message_expiry_minutes"
	KeyPrivateExpiryMinutes = "private_message_expiry_minutes"
	KeyTopicOfDay           = "topic_of_day"
	KeyRules                = "rules"
	KeyAbout                = "about"
)

// RetentionPolicy holds the expiry windows in minutes. Zero means never expire.
type RetentionPolicy struct {
	GroupExpiry   int
	PrivateExpiry int
}

// Reader reads settings straight from the database on every call
type Reader struct {
	db *gorm.DB
}

// NewReader creates a settings reader.
func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

// Value returns the value for key, or "" when the key is not set.
func (r *Reader) Value(ctx context.Context, key string) (string, error) {
	var s models.Setting
	err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Unavailable("failed to read setting "+key, err)
	}
	return s.SettingValue, nil
}

// BannedWords returns the parsed word filter list.
func (r *Reader) BannedWords(ctx context.Context) ([]string, error) {
	v, err := r.Value(ctx, KeyFilterWords)
	if err != nil {
		return nil, err
	}
	return filter.ParseWords(v), nil
}

// RetentionPolicy reads both expiry windows. Missing, unparseable or
// negative values read as 0.
func (r *Reader) RetentionPolicy(ctx context.Context) (RetentionPolicy, error) {
	var rows []models.Setting
	err := r.db.WithContext(ctx).
		Where("setting_key IN ?", []string{KeyGroupExpiryMinutes, KeyPrivateExpiryMinutes}).
		Find(&rows).Error
	if err != nil {
		return RetentionPolicy{}, apperr.Unavailable("failed to read retention policy", err)
	}

	var p RetentionPolicy
	for _, row := range rows {
		switch row.SettingKey {
		case KeyGroupExpiryMinutes:
			p.GroupExpiry = minutes(row.SettingValue)
		case KeyPrivateExpiryMinutes:
			p.PrivateExpiry = minutes(row.SettingValue)
		}
	}
	return p, nil
}

func minutes(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
