package models

import (
	"time"

	"gorm.io/datatypes"
)

// Block is a directed block edge. An edge in either direction hides direct
// messages between the two users.
type Block struct {
	ID        uint      `gorm:"primaryKey"`
	BlockerID uint      `gorm:"column:blocker_id;not null;uniqueIndex:idx_blocks_pair"`
	BlockedID uint      `gorm:"column:blocked_id;not null;uniqueIndex:idx_blocks_pair;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// Report is a user complaint. Evidence holds the most recent direct
// messages between the pair at report time, since messages expire.
type Report struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ReporterID uint           `gorm:"column:reporter_id;not null;index" json:"reporter_id"`
	ReportedID uint           `gorm:"column:reported_id;not null;index" json:"reported_id"`
	Reason     string         `gorm:"type:text;not null;default:''" json:"reason"`
	Evidence   datatypes.JSON `gorm:"type:jsonb" json:"evidence,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Setting is one admin-configured key/value pair
type Setting struct {
	ID           uint      `gorm:"primaryKey"`
	SettingKey   string    `gorm:"column:setting_key;uniqueIndex;not null"`
	SettingValue string    `gorm:"column:setting_value;type:text;not null;default:''"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (Setting) TableName() string {
	return "admin_settings"
}
