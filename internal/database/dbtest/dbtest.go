// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bdu-chat/campus-chat/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// Open returns an in-memory SQLite database with every model migrated.
// The database is closed when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:chattest%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying sql.DB: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.RoomMessage{},
		&models.DirectMessage{},
		&models.Block{},
		&models.Report{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// CreateUser inserts a user in the given faculty and returns it.
func CreateUser(t testing.TB, db *gorm.DB, name, faculty string) models.User {
	t.Helper()

	n := seq.Add(1)
	user := models.User{
		Email:    fmt.Sprintf("user%d@bsu.edu.az", n),
		Phone:    fmt.Sprintf("+99450%07d", n),
		Password: "x",
		FullName: name,
		Faculty:  faculty,
		Degree:   "bakalavr",
		Course:   "2",
		Avatar:   3,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// SetSetting upserts an admin setting.
func SetSetting(t testing.TB, db *gorm.DB, key, value string) {
	t.Helper()

	var s models.Setting
	err := db.Where(models.Setting{SettingKey: key}).
		Assign(models.Setting{SettingValue: value}).
		FirstOrCreate(&s).Error
	if err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}
