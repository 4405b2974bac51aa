package worker

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskRetentionSweep = "retention:sweep"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// NewRetentionSweepTask builds the sweep task. Unique for one interval so
// that schedulers on every instance keep at most one sweep queued at a time.
// The lock is released once a sweep completes, so a busy cluster may sweep
// more than once per interval; purges are idempotent.
func NewRetentionSweepTask(interval time.Duration) *asynq.Task {
	return asynq.NewTask(
		TaskRetentionSweep,
		nil, // Empty payload - handler reads the policy itself
		asynq.MaxRetry(0),
		asynq.Timeout(interval),
		asynq.Unique(interval),
	)
}

// EnqueueRetentionSweep enqueues an immediate sweep. A duplicate within the
// uniqueness window is not an error.
func EnqueueRetentionSweep(interval time.Duration) error {
	_, err := client.Enqueue(NewRetentionSweepTask(interval))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}
