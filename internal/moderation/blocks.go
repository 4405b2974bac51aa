// Package moderation stores block relationships and user reports.
package moderation

import (
	"context"
	"time"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Blocks is the block registry. Every read goes to the database so a block
// recorded before a submission is always seen by that submission.
type Blocks struct {
	db *gorm.DB
}

// NewBlocks creates a block registry backed by db.
func NewBlocks(db *gorm.DB) *Blocks {
	return &Blocks{db: db}
}

// Block records that blockerID blocked blockedID. Repeating it is a no-op.
func (b *Blocks) Block(ctx context.Context, blockerID, blockedID uint) error {
	if blockerID == 0 || blockedID == 0 {
		return apperr.Validation("user ids are required")
	}
	if blockerID == blockedID {
		return apperr.Validation("cannot block yourself")
	}

	edge := models.Block{BlockerID: blockerID, BlockedID: blockedID, CreatedAt: time.Now().UTC()}
	err := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge).Error
	if err != nil {
		return apperr.Unavailable("failed to store block", err)
	}
	return nil
}

// IsBlocked reports whether an edge exists between x and y in either direction.
func (b *Blocks) IsBlocked(ctx context.Context, x, y uint) (bool, error) {
	var count int64
	err := b.db.WithContext(ctx).Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", x, y, y, x).
		Count(&count).Error
	if err != nil {
		return false, apperr.Unavailable("failed to check block state", err)
	}
	return count > 0, nil
}

// BlockedBy returns the ids viewerID has blocked.
func (b *Blocks) BlockedBy(ctx context.Context, viewerID uint) ([]uint, error) {
	var ids []uint
	err := b.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocker_id = ?", viewerID).
		Pluck("blocked_id", &ids).Error
	if err != nil {
		return nil, apperr.Unavailable("failed to list blocked users", err)
	}
	return ids, nil
}

// BlockersOf returns the ids of users who blocked authorID.
func (b *Blocks) BlockersOf(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	err := b.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocked_id = ?", authorID).
		Pluck("blocker_id", &ids).Error
	if err != nil {
		return nil, apperr.Unavailable("failed to list blockers", err)
	}
	return ids, nil
}
