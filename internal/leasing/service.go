package leasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/havenstead/rentledger/internal/observability"
	"github.com/havenstead/rentledger/internal/shared"
)

// Defaults are applied to leases that do not carry their own late-fee policy.
type Defaults struct {
	GraceDays     int
	LateFeeAmount float64
}

// Service is the sole authority for opening and terminating leases and for
// keeping unit occupancy in sync with them.
type Service struct {
	repo     Repository
	defaults Defaults
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewService wires the lease lifecycle manager.
func NewService(repo Repository, defaults Defaults, metrics *observability.Metrics) *Service {
	return &Service{
		repo:     repo,
		defaults: defaults,
		metrics:  metrics,
		now:      time.Now,
	}
}

// CreateLease validates the request and opens an active lease, flipping the
// unit to occupied in the same transaction. A unit with an active lease or
// under maintenance rejects the request with a conflict.
func (s *Service) CreateLease(ctx context.Context, req CreateLeaseRequest) (*Lease, error) {
	if !req.StartDate.Before(req.EndDate) {
		return nil, fmt.Errorf("start date must precede end date: %w", shared.ErrValidation)
	}
	if req.RentDueDay < 1 || req.RentDueDay > 28 {
		return nil, fmt.Errorf("rent due day must be between 1 and 28: %w", shared.ErrValidation)
	}
	if req.RentAmount <= 0 {
		return nil, fmt.Errorf("rent amount must be positive: %w", shared.ErrValidation)
	}
	if req.DepositAmount < 0 {
		return nil, fmt.Errorf("deposit must not be negative: %w", shared.ErrValidation)
	}

	graceDays := s.defaults.GraceDays
	if req.GraceDays != nil {
		if *req.GraceDays < 0 {
			return nil, fmt.Errorf("grace days must not be negative: %w", shared.ErrValidation)
		}
		graceDays = *req.GraceDays
	}
	lateFee := s.defaults.LateFeeAmount
	if req.LateFeeAmount != nil {
		if *req.LateFeeAmount < 0 {
			return nil, fmt.Errorf("late fee must not be negative: %w", shared.ErrValidation)
		}
		lateFee = *req.LateFeeAmount
	}

	var leaseID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		unit, err := repo.GetUnit(ctx, req.UnitID)
		if err != nil {
			return fmt.Errorf("verify unit: %w", err)
		}
		if unit.Status == UnitStatusMaintenance {
			return fmt.Errorf("unit %d is under maintenance: %w", unit.ID, shared.ErrConflict)
		}

		existing, err := repo.ActiveLeaseForUnit(ctx, req.UnitID)
		if err != nil {
			return fmt.Errorf("check active lease: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("unit %d already has active lease %d: %w", req.UnitID, existing.ID, shared.ErrConflict)
		}

		id, err := repo.CreateLease(ctx, Lease{
			UnitID:        req.UnitID,
			TenantID:      req.TenantID,
			LeaseType:     req.LeaseType,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			RentAmount:    req.RentAmount,
			DepositAmount: req.DepositAmount,
			RentDueDay:    req.RentDueDay,
			GraceDays:     graceDays,
			LateFeeAmount: lateFee,
			Status:        LeaseStatusActive,
		})
		if err != nil {
			return fmt.Errorf("create lease: %w", err)
		}
		leaseID = id

		if err := repo.UpdateUnitStatus(ctx, req.UnitID, UnitStatusOccupied); err != nil {
			return fmt.Errorf("occupy unit: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			s.metrics.LeaseConflict()
		}
		return nil, err
	}

	s.metrics.LeaseCreated()
	return s.repo.GetLease(ctx, leaseID)
}

// TerminateLease closes an active lease and vacates its unit. Terminating an
// already terminated lease is a no-op success; duplicate dashboard
// submissions must not surface as errors. The lease is read inside the
// transaction: a duplicate terminate that lost the race must observe the
// terminated state and leave the unit alone, not vacate a re-let unit.
func (s *Service) TerminateLease(ctx context.Context, leaseID int64) error {
	var terminated bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		lease, err := repo.GetLease(ctx, leaseID)
		if err != nil {
			return fmt.Errorf("get lease: %w", err)
		}
		if lease.Status == LeaseStatusTerminated {
			return nil
		}
		if err := repo.UpdateLeaseStatus(ctx, leaseID, LeaseStatusTerminated); err != nil {
			return fmt.Errorf("terminate lease: %w", err)
		}
		if err := repo.UpdateUnitStatus(ctx, lease.UnitID, UnitStatusVacant); err != nil {
			return fmt.Errorf("vacate unit: %w", err)
		}
		terminated = true
		return nil
	})
	if err != nil {
		return err
	}

	if terminated {
		s.metrics.LeaseTerminated()
	}
	return nil
}

// ActiveLeaseForUnit returns the unit's active lease, or nil when vacant.
func (s *Service) ActiveLeaseForUnit(ctx context.Context, unitID int64) (*Lease, error) {
	if _, err := s.repo.GetUnit(ctx, unitID); err != nil {
		return nil, fmt.Errorf("verify unit: %w", err)
	}
	return s.repo.ActiveLeaseForUnit(ctx, unitID)
}

// GetLease fetches a lease by id.
func (s *Service) GetLease(ctx context.Context, id int64) (*Lease, error) {
	return s.repo.GetLease(ctx, id)
}

// GetUnit fetches a unit by id.
func (s *Service) GetUnit(ctx context.Context, id int64) (*Unit, error) {
	return s.repo.GetUnit(ctx, id)
}

// ListLeases lists leases with filters.
func (s *Service) ListLeases(ctx context.Context, req ListLeasesRequest) ([]Lease, int, error) {
	return s.repo.ListLeases(ctx, req)
}

// SetUnitMaintenance takes a unit out of circulation. Only vacant units
// qualify; an occupied unit must have its lease terminated first.
func (s *Service) SetUnitMaintenance(ctx context.Context, unitID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		unit, err := repo.GetUnit(ctx, unitID)
		if err != nil {
			return fmt.Errorf("verify unit: %w", err)
		}
		if unit.Status == UnitStatusMaintenance {
			return nil
		}
		active, err := repo.ActiveLeaseForUnit(ctx, unitID)
		if err != nil {
			return fmt.Errorf("check active lease: %w", err)
		}
		if active != nil {
			return fmt.Errorf("unit %d has active lease %d: %w", unitID, active.ID, shared.ErrConflict)
		}
		return repo.UpdateUnitStatus(ctx, unitID, UnitStatusMaintenance)
	})
}

// SetUnitVacant returns a maintenance unit to circulation so leases can be
// created against it again.
func (s *Service) SetUnitVacant(ctx context.Context, unitID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		unit, err := repo.GetUnit(ctx, unitID)
		if err != nil {
			return fmt.Errorf("verify unit: %w", err)
		}
		switch unit.Status {
		case UnitStatusVacant:
			return nil
		case UnitStatusOccupied:
			return fmt.Errorf("unit %d is occupied: %w", unitID, shared.ErrConflict)
		}
		return repo.UpdateUnitStatus(ctx, unitID, UnitStatusVacant)
	})
}
