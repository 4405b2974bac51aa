// Package sweeper deletes expired messages on a fixed interval according to
// the retention windows in admin settings.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bdu-chat/campus-chat/internal/messages"
	"github.com/bdu-chat/campus-chat/internal/settings"
)

// DefaultInterval is the tick period used when none is configured
const DefaultInterval = time.Minute

// Purger deletes messages older than a window
type Purger interface {
	PurgeOlderThan(ctx context.Context, kind messages.Kind, minutes int) (int64, error)
}

// PolicySource reads the current retention windows
type PolicySource interface {
	RetentionPolicy(ctx context.Context) (settings.RetentionPolicy, error)
}

// Result summarizes one sweep.
type Result struct {
	RoomPurged   int64
	DirectPurged int64
	Skipped      bool
}

// Sweeper runs retention sweeps. At most one sweep runs at a time per Sweeper.
type Sweeper struct {
	purger   Purger
	policy   PolicySource
	interval time.Duration
	logger   *slog.Logger

	running sync.Mutex
}

// New creates a Sweeper. A non-positive interval uses DefaultInterval.
func New(purger Purger, policy PolicySource, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		purger:   purger,
		policy:   policy,
		interval: interval,
		logger:   logger,
	}
}

// Interval returns the tick period.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Sweep reads the retention policy and purges expired room and direct
// messages. If a sweep is already in progress it returns immediately with
// Skipped set. A failure in one purge does not prevent the other; the
// returned error joins both.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	if !s.running.TryLock() {
		s.logger.Warn("Retention sweep already running, skipping tick")
		return Result{Skipped: true}, nil
	}
	defer s.running.Unlock()

	policy, err := s.policy.RetentionPolicy(ctx)
	if err != nil {
		s.logger.Error("Failed to read retention policy", "error", err)
		return Result{}, err
	}

	var (
		res  Result
		errs []error
	)

	res.RoomPurged, err = s.purger.PurgeOlderThan(ctx, messages.KindRoom, policy.GroupExpiry)
	if err != nil {
		s.logger.Error("Failed to purge room messages", "expiry_minutes", policy.GroupExpiry, "error", err)
		errs = append(errs, err)
	}

	res.DirectPurged, err = s.purger.PurgeOlderThan(ctx, messages.KindDirect, policy.PrivateExpiry)
	if err != nil {
		s.logger.Error("Failed to purge direct messages", "expiry_minutes", policy.PrivateExpiry, "error", err)
		errs = append(errs, err)
	}

	if res.RoomPurged > 0 || res.DirectPurged > 0 {
		s.logger.Info("Retention sweep completed",
			"room_purged", res.RoomPurged,
			"direct_purged", res.DirectPurged,
		)
	}

	return res, errors.Join(errs...)
}

// Run sweeps once per interval until ctx is cancelled. Errors are logged and
// the next tick proceeds normally.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Retention sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retention sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
