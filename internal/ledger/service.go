package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/havenstead/rentledger/internal/leasing"
	"github.com/havenstead/rentledger/internal/observability"
	"github.com/havenstead/rentledger/internal/shared"
)

// LeaseSource resolves lease terms (due day, rent, late-fee policy) for the
// ledger. Satisfied by leasing.Service.
type LeaseSource interface {
	GetLease(ctx context.Context, id int64) (*leasing.Lease, error)
}

// Service records payments, determines late-fee eligibility, and answers
// what is owed. It never mutates leases or units.
type Service struct {
	repo    Repository
	leases  LeaseSource
	cache   *BalanceCache
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService wires the payment ledger.
func NewService(repo Repository, leases LeaseSource, cache *BalanceCache, metrics *observability.Metrics) *Service {
	return &Service{
		repo:    repo,
		leases:  leases,
		cache:   cache,
		metrics: metrics,
		now:     time.Now,
	}
}

// RecordPayment appends an immutable payment record. Historical corrections
// on terminated leases are permitted; the due date must still lie on the
// lease's schedule. The late fee attaches only when the payment lands
// strictly after the due date plus the lease's grace period.
func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*Payment, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", shared.ErrValidation)
	}

	lease, err := s.leases.GetLease(ctx, req.LeaseID)
	if err != nil {
		return nil, fmt.Errorf("resolve lease: %w", err)
	}

	dueDate := DateOnly(req.DueDate)
	paymentDate := DateOnly(req.PaymentDate)
	if !OnSchedule(lease, dueDate) {
		return nil, fmt.Errorf("due date %s is not on the lease schedule: %w",
			dueDate.Format("2006-01-02"), shared.ErrValidation)
	}

	var lateFee *float64
	if paymentDate.After(dueDate.AddDate(0, 0, lease.GraceDays)) && lease.LateFeeAmount > 0 {
		fee := lease.LateFeeAmount
		lateFee = &fee
	}

	status := PaymentStatusPending
	if req.Settled {
		status = PaymentStatusCompleted
	}

	payment := Payment{
		Number:         paymentNumber(paymentDate),
		LeaseID:        lease.ID,
		TenantID:       lease.TenantID,
		Amount:         req.Amount,
		LateFee:        lateFee,
		PaymentDate:    paymentDate,
		DueDate:        dueDate,
		Method:         req.Method,
		Status:         status,
		TransactionRef: req.TransactionRef,
		Notes:          req.Notes,
	}

	id, err := s.repo.Insert(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	s.cache.Invalidate(ctx, lease.ID)
	s.metrics.PaymentRecorded(lateFee != nil)
	return s.repo.Get(ctx, id)
}

// UpdatePaymentStatus advances a payment through its transition set. The
// swap is compare-and-set on the current status so a landlord and the
// reconciliation sweep cannot overwrite each other.
func (s *Service) UpdatePaymentStatus(ctx context.Context, paymentID int64, newStatus PaymentStatus, transactionRef *string) (*Payment, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("unknown payment status %q: %w", newStatus, shared.ErrValidation)
	}

	payment, err := s.repo.Get(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	if payment.Status == newStatus {
		return payment, nil
	}
	if !payment.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("payment %d cannot move %s -> %s: %w",
			paymentID, payment.Status, newStatus, shared.ErrInvalidTransition)
	}

	swapped, err := s.repo.UpdateStatus(ctx, paymentID, payment.Status, newStatus, transactionRef)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	if !swapped {
		return nil, fmt.Errorf("payment %d was modified concurrently: %w", paymentID, shared.ErrConflict)
	}

	s.cache.Invalidate(ctx, payment.LeaseID)
	return s.repo.Get(ctx, paymentID)
}

// OutstandingBalance sums scheduled rent through asOf and nets completed
// payments (including their attached late fees). Never negative.
func (s *Service) OutstandingBalance(ctx context.Context, leaseID int64, asOf time.Time) (*Balance, error) {
	lease, err := s.leases.GetLease(ctx, leaseID)
	if err != nil {
		return nil, fmt.Errorf("resolve lease: %w", err)
	}
	asOf = DateOnly(asOf)

	return s.cache.FetchBalance(ctx, leaseID, asOf, func(ctx context.Context) (*Balance, error) {
		dues := DueDatesThrough(lease, asOf)
		rentDue := float64(len(dues)) * lease.RentAmount

		paid, err := s.repo.SumCompleted(ctx, leaseID, asOf)
		if err != nil {
			return nil, fmt.Errorf("sum completed payments: %w", err)
		}

		outstanding := rentDue - paid
		surplus := 0.0
		if outstanding < 0 {
			surplus = -outstanding
			outstanding = 0
		}

		return &Balance{
			LeaseID:     leaseID,
			AsOf:        asOf,
			PeriodsDue:  len(dues),
			RentDue:     rentDue,
			PaidTotal:   paid,
			Outstanding: outstanding,
			Surplus:     surplus,
		}, nil
	})
}

// GetPayment fetches one payment.
func (s *Service) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.Get(ctx, id)
}

// ListPayments pages through a lease's history, newest due date first.
func (s *Service) ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error) {
	if _, err := s.leases.GetLease(ctx, req.LeaseID); err != nil {
		return nil, 0, fmt.Errorf("resolve lease: %w", err)
	}
	return s.repo.ListByLease(ctx, req.LeaseID, req.Limit, req.Offset)
}

// FailStalePending marks PENDING payments older than the cutoff FAILED via
// the CAS path. Used by the reconciliation sweep.
func (s *Service) FailStalePending(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	stale, err := s.repo.ListStalePending(ctx, olderThan, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale pending: %w", err)
	}

	failed := 0
	for _, p := range stale {
		swapped, err := s.repo.UpdateStatus(ctx, p.ID, PaymentStatusPending, PaymentStatusFailed, nil)
		if err != nil {
			return failed, fmt.Errorf("fail payment %d: %w", p.ID, err)
		}
		if swapped {
			s.cache.Invalidate(ctx, p.LeaseID)
			failed++
		}
	}
	return failed, nil
}

func paymentNumber(paymentDate time.Time) string {
	ref := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("PAY-%s-%s", paymentDate.Format("0601"), ref[:8])
}
