package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "REDIS_URL", "SESSION_SECRET", "LOG_LEVEL", "SWEEP_INTERVAL", "SWEEP_MODE", "RUN_MIGRATIONS", "SEED_DEV_DATA", "WS_ALLOWED_ORIGINS", "DB_MAX_OPEN_CONNS", "DB_CONNECT_ATTEMPTS"} {
		t.Setenv(key, "")
	}
	t.Setenv("INSTANCE_ID", "test-1")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("expected 1m sweep interval, got %s", cfg.SweepInterval)
	}
	if cfg.SweepMode != SweepModeLocal {
		t.Errorf("expected local sweep mode, got %s", cfg.SweepMode)
	}
	if !cfg.RunMigrations || cfg.SeedDevData {
		t.Errorf("unexpected flags: migrations=%t seed=%t", cfg.RunMigrations, cfg.SeedDevData)
	}
	if cfg.SessionSecret == "" {
		t.Error("expected a fallback session secret")
	}
	if cfg.InstanceID != "test-1" {
		t.Errorf("expected instance id test-1, got %s", cfg.InstanceID)
	}
	if cfg.IsProduction() {
		t.Error("default env should not be production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("SWEEP_MODE", "ASYNQ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SEED_DEV_DATA", "true")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://chat.bsu.edu.az, ,http://localhost:3000")

	cfg := Load()

	if cfg.SweepInterval != 30*time.Second {
		t.Errorf("expected 30s, got %s", cfg.SweepInterval)
	}
	if cfg.SweepMode != SweepModeAsynq {
		t.Errorf("expected asynq mode, got %s", cfg.SweepMode)
	}
	if !cfg.SeedDevData {
		t.Error("expected seeding enabled")
	}
	if len(cfg.WSAllowedOrigins) != 2 || cfg.WSAllowedOrigins[1] != "http://localhost:3000" {
		t.Errorf("unexpected origins: %v", cfg.WSAllowedOrigins)
	}
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "soon")
	t.Setenv("SWEEP_MODE", "cron")
	t.Setenv("RUN_MIGRATIONS", "maybe")
	t.Setenv("DB_MAX_OPEN_CONNS", "-3")

	cfg := Load()

	if cfg.SweepInterval != time.Minute {
		t.Errorf("expected default interval, got %s", cfg.SweepInterval)
	}
	if cfg.SweepMode != SweepModeLocal {
		t.Errorf("expected local mode, got %s", cfg.SweepMode)
	}
	if cfg.DBMaxOpenConns != 20 {
		t.Errorf("expected default pool size, got %d", cfg.DBMaxOpenConns)
	}
	if !cfg.RunMigrations {
		t.Error("expected default RUN_MIGRATIONS=true")
	}
}

func TestAsynqModeNeedsRedis(t *testing.T) {
	t.Setenv("SWEEP_MODE", "asynq")
	t.Setenv("REDIS_URL", "")

	if cfg := Load(); cfg.SweepMode != SweepModeLocal {
		t.Errorf("expected fallback to local mode, got %s", cfg.SweepMode)
	}
}
