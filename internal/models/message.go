package models

import "time"

// RoomMessage is a message posted to a faculty room. Faculty is the
// author's faculty at send time; room reads join against the author's
// current faculty instead.
type RoomMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Faculty   string    `gorm:"not null;default:''" json:"faculty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName keeps the table name used by the existing schema
func (RoomMessage) TableName() string {
	return "messages"
}

// DirectMessage is a private message between two users
type DirectMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"column:sender_id;not null;index" json:"sender_id"`
	ReceiverID uint      `gorm:"column:receiver_id;not null;index" json:"receiver_id"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}

func (DirectMessage) TableName() string {
	return "private_messages"
}
