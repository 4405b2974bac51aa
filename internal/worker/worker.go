package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdu-chat/campus-chat/internal/config"
	"github.com/bdu-chat/campus-chat/internal/sweeper"
	"github.com/hibiken/asynq"
)

// Sweeper runs one retention sweep
type Sweeper interface {
	Sweep(ctx context.Context) (sweeper.Result, error)
}

// asynqLoggerAdapter routes asynq's internal logs through slog
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) *asynqLoggerAdapter {
	return &asynqLoggerAdapter{logger: logger.With("component", "asynq")}
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
func Start(cfg *config.Config, sw Sweeper, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     1,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          newAsynqLogger(logger),
		},
	)

	if err := srv.Start(newMux(sw, logger)); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}

	logger.Info("Worker started", "instance_id", cfg.InstanceID)
	return func() { srv.Shutdown() }, nil
}

func newMux(sw Sweeper, logger *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRetentionSweep, handleRetentionSweep(logger, sw))
	return mux
}

// handleRetentionSweep runs the sweep for one scheduled tick.
func handleRetentionSweep(logger *slog.Logger, sw Sweeper) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		res, err := sw.Sweep(ctx)
		if err != nil {
			// The next tick retries on its own
			return fmt.Errorf("retention sweep failed: %v: %w", err, asynq.SkipRetry)
		}

		logger.Debug(
			"Processed retention:sweep task",
			"room_purged", res.RoomPurged,
			"direct_purged", res.DirectPurged,
			"skipped", res.Skipped,
		)
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)
	}
}

func sweepSpec(interval time.Duration) string {
	return "@every " + interval.String()
}
