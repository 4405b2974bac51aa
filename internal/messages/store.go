// Package messages is the durable log of room and direct messages.
package messages

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/models"
	"gorm.io/gorm"
)

// Kind selects one of the two message tables
type Kind string

const (
	KindRoom   Kind = "room"
	KindDirect Kind = "direct"
)

// RoomRow is a room message joined with its author's current profile
type RoomRow struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Faculty   string    `json:"faculty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	FullName  string    `json:"full_name"`
	Degree    string    `json:"degree"`
	Course    string    `json:"course"`
	Avatar    int       `json:"avatar"`
}

// DirectRow is a direct message joined with its sender's profile
type DirectRow struct {
	ID         uint      `json:"id"`
	SenderID   uint      `json:"sender_id"`
	ReceiverID uint      `json:"receiver_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	FullName   string    `json:"full_name"`
	Avatar     int       `json:"avatar"`
}

// Store persists messages with gorm
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a Store that stamps rows with the wall clock.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock replaces the clock used for created_at and purge cutoffs.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// AppendRoom stores a room message. The id and created_at are assigned by
// the single INSERT.
func (s *Store) AppendRoom(ctx context.Context, authorID uint, faculty, text string) (*models.RoomMessage, error) {
	msg := models.RoomMessage{
		UserID:    authorID,
		Faculty:   faculty,
		Message:   text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, apperr.Unavailable("failed to store room message", err)
	}
	return &msg, nil
}

// AppendDirect stores a direct message.
func (s *Store) AppendDirect(ctx context.Context, senderID, receiverID uint, text string) (*models.DirectMessage, error) {
	msg := models.DirectMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    text,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, apperr.Unavailable("failed to store direct message", err)
	}
	return &msg, nil
}

// ListRoom returns the messages of every author currently in faculty,
// oldest first, without authors the viewer has blocked.
func (s *Store) ListRoom(ctx context.Context, viewerID uint, faculty string) ([]RoomRow, error) {
	blocked := s.db.Model(&models.Block{}).Select("blocked_id").Where("blocker_id = ?", viewerID)

	var rows []RoomRow
	err := s.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.id, m.user_id, u.faculty, m.message, m.created_at, u.full_name, u.degree, u.course, u.avatar").
		Joins("JOIN users AS u ON u.id = m.user_id").
		Where("u.faculty = ?", faculty).
		Where("m.user_id NOT IN (?)", blocked).
		Order("m.created_at ASC, m.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Unavailable("failed to list room messages", err)
	}
	return rows, nil
}

// ListDirect returns the conversation between a and b, oldest first. A block
// edge in either direction hides the whole conversation.
func (s *Store) ListDirect(ctx context.Context, a, b uint) ([]DirectRow, error) {
	blocked, err := s.pairBlocked(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if blocked {
		return []DirectRow{}, nil
	}

	rows, err := s.conversation(ctx, a, b, "pm.created_at ASC, pm.id ASC", 0)
	if err != nil {
		return nil, apperr.Unavailable("failed to list direct messages", err)
	}
	return rows, nil
}

// RecentDirect returns up to limit of the newest messages between a and b,
// newest first, regardless of blocks.
func (s *Store) RecentDirect(ctx context.Context, a, b uint, limit int) ([]DirectRow, error) {
	rows, err := s.conversation(ctx, a, b, "pm.created_at DESC, pm.id DESC", limit)
	if err != nil {
		return nil, apperr.Unavailable("failed to read recent direct messages", err)
	}
	return rows, nil
}

// maxWindowMinutes is the longest window a time.Duration can hold.
const maxWindowMinutes = math.MaxInt64 / int64(time.Minute)

// PurgeOlderThan deletes every message of kind created more than minutes
// ago. A non-positive window means never expire, and so does one too long
// to represent as a duration.
func (s *Store) PurgeOlderThan(ctx context.Context, kind Kind, minutes int) (int64, error) {
	if minutes <= 0 || int64(minutes) > maxWindowMinutes {
		return 0, nil
	}

	var model any
	switch kind {
	case KindRoom:
		model = &models.RoomMessage{}
	case KindDirect:
		model = &models.DirectMessage{}
	default:
		return 0, fmt.Errorf("unknown message kind: %q", kind)
	}

	cutoff := s.now().UTC().Add(-time.Duration(minutes) * time.Minute)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(model)
	if result.Error != nil {
		return 0, apperr.Unavailable(fmt.Sprintf("failed to purge %s messages", kind), result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) conversation(ctx context.Context, a, b uint, order string, limit int) ([]DirectRow, error) {
	q := s.db.WithContext(ctx).
		Table("private_messages AS pm").
		Select("pm.id, pm.sender_id, pm.receiver_id, pm.message, pm.created_at, u.full_name, u.avatar").
		Joins("JOIN users AS u ON u.id = pm.sender_id").
		Where("(pm.sender_id = ? AND pm.receiver_id = ?) OR (pm.sender_id = ? AND pm.receiver_id = ?)", a, b, b, a).
		Order(order)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []DirectRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) pairBlocked(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, apperr.Unavailable("failed to check block state", err)
	}
	return count > 0, nil
}
