package database

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const applicationName = "bdu-chat"

// Options tunes the connection pool and startup behaviour
type Options struct {
	LogLevel        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectAttempts bounds how often the initial connect is tried while
	// Postgres is still starting up.
	ConnectAttempts int
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 20
	}
	if o.MaxIdleConns <= 0 || o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = o.MaxOpenConns / 2
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 5 * time.Minute
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = 1
	}
	return o
}

// Init opens the chat database. SQL statements are logged only at debug level.
func Init(databaseURL string, opts Options) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	opts = opts.withDefaults()

	dsn, err := normalizeDSN(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(gormLogLevel(opts.LogLevel))}

	var db *gorm.DB
	for attempt := 1; ; attempt++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		if attempt >= opts.ConnectAttempts {
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempt, err)
		}
		wait := time.Duration(attempt) * time.Second
		slog.Warn("Database not reachable, retrying", "attempt", attempt, "retry_in", wait, "error", err)
		time.Sleep(wait)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return db, nil
}

// Close releases the pool. A nil db is a no-op.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// normalizeDSN pins the session to UTC, since created_at drives retention,
// and tags connections with the service name unless the URL already does.
func normalizeDSN(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	q := u.Query()
	if q.Get("TimeZone") == "" {
		q.Set("TimeZone", "UTC")
	}
	if q.Get("application_name") == "" {
		q.Set("application_name", applicationName)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	default:
		return logger.Warn
	}
}
