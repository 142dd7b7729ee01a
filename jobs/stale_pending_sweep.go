package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/havenstead/rentledger/internal/lifecycle"
)

// StalePendingSweepJob fails PENDING payments that sat past the confirmation
// horizon. A failed payment must be resubmitted as a new record, so the
// sweep goes through the same compare-and-swap path as everyone else.
type StalePendingSweepJob struct {
	Facade  *lifecycle.Facade
	Horizon time.Duration
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewStalePendingSweepJob wires dependencies for the sweep handler.
func NewStalePendingSweepJob(facade *lifecycle.Facade, horizon time.Duration, logger *slog.Logger) *StalePendingSweepJob {
	return &StalePendingSweepJob{
		Facade:  facade,
		Horizon: horizon,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskStalePendingSweep tasks.
func (j *StalePendingSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Facade == nil {
		return errors.New("stale pending sweep: handler not configured")
	}
	var payload StalePendingSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 200
	}

	cutoff := j.clock().Add(-j.Horizon)
	failed, err := j.Facade.FailStalePending(ctx, cutoff, payload.Limit)
	if err != nil {
		j.logger().Error("stale pending sweep failed", slog.Any("error", err))
		return err
	}
	if failed > 0 {
		j.logger().Info("stale pending sweep done",
			slog.Int("failed", failed),
			slog.Time("cutoff", cutoff))
	}
	return nil
}

func (j *StalePendingSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
