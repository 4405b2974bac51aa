package models

import (
	"time"
)

// User is a registered student. Rows are owned by the registration and
// profile services; the chat core only reads them.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string    `gorm:"uniqueIndex;not null" json:"phone"`
	Password  string    `gorm:"not null" json:"-"`
	FullName  string    `gorm:"column:full_name;not null" json:"full_name"`
	Faculty   string    `gorm:"not null;index" json:"faculty"`
	Degree    string    `json:"degree"`
	Course    string    `json:"course"`
	Avatar    int       `gorm:"not null;default:1" json:"avatar"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
