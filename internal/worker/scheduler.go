package worker

import (
	"fmt"
	"log/slog"

	"github.com/bdu-chat/campus-chat/internal/config"
	"github.com/hibiken/asynq"
)

// StartScheduler creates and starts an Asynq Scheduler for the periodic
// retention sweep. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			LogLevel: asynq.InfoLevel,
			Logger:   newAsynqLogger(logger),
		},
	)

	spec := sweepSpec(cfg.SweepInterval)
	entryID, err := scheduler.Register(spec, NewRetentionSweepTask(cfg.SweepInterval))
	if err != nil {
		return nil, fmt.Errorf("failed to register retention sweep: %w", err)
	}

	// Start scheduler (non-blocking)
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info(
		"Scheduler started",
		"schedule", spec,
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}
