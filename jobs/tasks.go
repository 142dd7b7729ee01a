package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStalePendingSweep fails PENDING payments no confirmation ever arrived for.
	TaskStalePendingSweep = "ledger:stale_pending_sweep"
	// TaskBalanceWarmup precomputes balances for active leases.
	TaskBalanceWarmup = "ledger:balance_warmup"
)

// StalePendingSweepPayload bounds one sweep run.
type StalePendingSweepPayload struct {
	Limit int `json:"limit"`
}

// NewStalePendingSweepTask constructs the sweep task.
func NewStalePendingSweepTask(limit int) (*asynq.Task, error) {
	data, err := json.Marshal(StalePendingSweepPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStalePendingSweep, data), nil
}

// BalanceWarmupPayload bounds one warmup run.
type BalanceWarmupPayload struct {
	Limit int `json:"limit"`
}

// NewBalanceWarmupTask constructs the warmup task.
func NewBalanceWarmupTask(limit int) (*asynq.Task, error) {
	data, err := json.Marshal(BalanceWarmupPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceWarmup, data), nil
}
