package database

import (
	"fmt"
	"log/slog"

	"github.com/bdu-chat/campus-chat/internal/faculty"
	"github.com/bdu-chat/campus-chat/internal/models"
	"github.com/bdu-chat/campus-chat/internal/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// devPassword is not a valid password hash, so seeded users cannot sign in
// through the real login flow.
const devPassword = "!dev-seed"

// SeedDevData populates the database with development users: two per
// faculty for the first three faculties of the catalog, plus a topic of the
// day. Idempotent: existing rows are left untouched.
func SeedDevData(db *gorm.DB, catalog *faculty.Catalog, logger *slog.Logger) error {
	faculties := catalog.List()
	if len(faculties) > 3 {
		faculties = faculties[:3]
	}

	created := 0
	for fi, f := range faculties {
		for n := 1; n <= 2; n++ {
			user := models.User{
				Email:    fmt.Sprintf("dev%d.%d@bsu.edu.az", fi+1, n),
				Phone:    fmt.Sprintf("+99450000%02d%02d", fi+1, n),
				Password: devPassword,
				FullName: fmt.Sprintf("Dev Tələbə %d.%d", fi+1, n),
				Faculty:  f.Name,
				Degree:   "bakalavr",
				Course:   fmt.Sprint(n),
				Avatar:   (fi+n)%8 + 1,
				IsActive: true,
			}
			result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
			if result.Error != nil {
				return fmt.Errorf("failed to seed user %s: %w", user.Email, result.Error)
			}
			created += int(result.RowsAffected)
		}
	}

	topic := models.Setting{SettingKey: settings.KeyTopicOfDay, SettingValue: "Xoş gəlmisiniz! Fakültə yoldaşlarınızla tanış olun."}
	if err := db.Where(models.Setting{SettingKey: topic.SettingKey}).FirstOrCreate(&topic).Error; err != nil {
		return fmt.Errorf("failed to seed topic of day: %w", err)
	}

	if created == 0 {
		logger.Info("Seed data already exists, skipping")
		return nil
	}
	logger.Info("Seeded dev data", "users", created)
	return nil
}
