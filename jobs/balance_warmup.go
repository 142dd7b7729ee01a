package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/havenstead/rentledger/internal/leasing"
	"github.com/havenstead/rentledger/internal/lifecycle"
)

// BalanceWarmupJob precomputes outstanding balances for active leases so the
// dashboard's first paint hits warm cache.
type BalanceWarmupJob struct {
	Facade *lifecycle.Facade
	Logger *slog.Logger
	clock  func() time.Time
}

// NewBalanceWarmupJob wires dependencies for the warmup handler.
func NewBalanceWarmupJob(facade *lifecycle.Facade, logger *slog.Logger) *BalanceWarmupJob {
	return &BalanceWarmupJob{
		Facade: facade,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskBalanceWarmup tasks.
func (j *BalanceWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Facade == nil {
		return errors.New("balance warmup: handler not configured")
	}
	var payload BalanceWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 500
	}

	active := leasing.LeaseStatusActive
	leases, _, err := j.Facade.ListLeases(ctx, leasing.ListLeasesRequest{
		Status: &active,
		Limit:  payload.Limit,
	})
	if err != nil {
		j.logger().Error("balance warmup list failed", slog.Any("error", err))
		return err
	}

	asOf := j.clock()
	warmed := 0
	for _, lease := range leases {
		if _, err := j.Facade.OutstandingBalance(ctx, lease.ID, asOf); err != nil {
			j.logger().Warn("balance warmup skipped lease",
				slog.Int64("lease_id", lease.ID), slog.Any("error", err))
			continue
		}
		warmed++
	}
	j.logger().Info("balance warmup done", slog.Int("warmed", warmed))
	return nil
}

func (j *BalanceWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
