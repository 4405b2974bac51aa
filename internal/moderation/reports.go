package moderation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bdu-chat/campus-chat/internal/apperr"
	"github.com/bdu-chat/campus-chat/internal/messages"
	"github.com/bdu-chat/campus-chat/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EvidenceLimit is how many recent direct messages are attached to a report
const EvidenceLimit = 20

// SuspiciousThreshold is the report count that flags an account for review
const SuspiciousThreshold = 8

// EvidenceSource reads the recent conversation between two users
type EvidenceSource interface {
	RecentDirect(ctx context.Context, a, b uint, limit int) ([]messages.DirectRow, error)
}

// Reports stores user complaints
type Reports struct {
	db       *gorm.DB
	evidence EvidenceSource
}

// NewReports creates a report store. evidence may be nil, in which case
// reports carry no message snapshot.
func NewReports(db *gorm.DB, evidence EvidenceSource) *Reports {
	return &Reports{db: db, evidence: evidence}
}

// SuspiciousUser is a user with their total report count
type SuspiciousUser struct {
	UserID      uint  `json:"user_id"`
	ReportCount int64 `json:"report_count"`
}

// Report records that reporterID reported reportedID.
func (r *Reports) Report(ctx context.Context, reporterID, reportedID uint, reason string) (*models.Report, error) {
	if reporterID == 0 || reportedID == 0 {
		return nil, apperr.Validation("user ids are required")
	}
	if reporterID == reportedID {
		return nil, apperr.Validation("cannot report yourself")
	}

	report := models.Report{
		ReporterID: reporterID,
		ReportedID: reportedID,
		Reason:     strings.TrimSpace(reason),
	}

	if r.evidence != nil {
		rows, err := r.evidence.RecentDirect(ctx, reporterID, reportedID, EvidenceLimit)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			raw, err := json.Marshal(rows)
			if err != nil {
				return nil, apperr.Unavailable("failed to encode report evidence", err)
			}
			report.Evidence = datatypes.JSON(raw)
		}
	}

	if err := r.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, apperr.Unavailable("failed to store report", err)
	}
	return &report, nil
}

// Suspicious returns users reported at least threshold times, most reported first.
func (r *Reports) Suspicious(ctx context.Context, threshold int) ([]SuspiciousUser, error) {
	var out []SuspiciousUser
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Select("reported_id AS user_id, COUNT(*) AS report_count").
		Group("reported_id").
		Having("COUNT(*) >= ?", threshold).
		Order("report_count DESC, reported_id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Unavailable("failed to list suspicious users", err)
	}
	return out, nil
}
