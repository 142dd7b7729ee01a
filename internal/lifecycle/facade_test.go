package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/havenstead/rentledger/internal/leasing"
	"github.com/havenstead/rentledger/internal/ledger"
	"github.com/havenstead/rentledger/internal/shared"
)

// fakeLeaseRepo is a single-goroutine stand-in for the pg repository.
type fakeLeaseRepo struct {
	units  map[int64]leasing.Unit
	leases map[int64]leasing.Lease
	nextID int64
}

func newFakeLeaseRepo(units ...leasing.Unit) *fakeLeaseRepo {
	r := &fakeLeaseRepo{
		units:  make(map[int64]leasing.Unit),
		leases: make(map[int64]leasing.Lease),
	}
	for _, u := range units {
		r.units[u.ID] = u
	}
	return r
}

func (r *fakeLeaseRepo) WithTx(ctx context.Context, fn func(context.Context, leasing.Repository) error) error {
	return fn(ctx, r)
}

func (r *fakeLeaseRepo) GetUnit(ctx context.Context, id int64) (*leasing.Unit, error) {
	u, ok := r.units[id]
	if !ok {
		return nil, fmt.Errorf("unit %d: %w", id, shared.ErrNotFound)
	}
	return &u, nil
}

func (r *fakeLeaseRepo) UpdateUnitStatus(ctx context.Context, id int64, status leasing.UnitStatus) error {
	u, ok := r.units[id]
	if !ok {
		return fmt.Errorf("unit %d: %w", id, shared.ErrNotFound)
	}
	u.Status = status
	r.units[id] = u
	return nil
}

func (r *fakeLeaseRepo) GetLease(ctx context.Context, id int64) (*leasing.Lease, error) {
	l, ok := r.leases[id]
	if !ok {
		return nil, fmt.Errorf("lease %d: %w", id, shared.ErrNotFound)
	}
	return &l, nil
}

func (r *fakeLeaseRepo) ActiveLeaseForUnit(ctx context.Context, unitID int64) (*leasing.Lease, error) {
	for _, l := range r.leases {
		if l.UnitID == unitID && l.Status == leasing.LeaseStatusActive {
			lease := l
			return &lease, nil
		}
	}
	return nil, nil
}

func (r *fakeLeaseRepo) CreateLease(ctx context.Context, lease leasing.Lease) (int64, error) {
	if lease.Status == leasing.LeaseStatusActive {
		for _, existing := range r.leases {
			if existing.UnitID == lease.UnitID && existing.Status == leasing.LeaseStatusActive {
				return 0, fmt.Errorf("unit %d already leased: %w", lease.UnitID, shared.ErrConflict)
			}
		}
	}
	r.nextID++
	lease.ID = r.nextID
	r.leases[lease.ID] = lease
	return lease.ID, nil
}

func (r *fakeLeaseRepo) UpdateLeaseStatus(ctx context.Context, id int64, status leasing.LeaseStatus) error {
	l, ok := r.leases[id]
	if !ok {
		return fmt.Errorf("lease %d: %w", id, shared.ErrNotFound)
	}
	l.Status = status
	if status == leasing.LeaseStatusTerminated {
		now := time.Now()
		l.TerminatedAt = &now
	}
	r.leases[id] = l
	return nil
}

func (r *fakeLeaseRepo) ListLeases(ctx context.Context, req leasing.ListLeasesRequest) ([]leasing.Lease, int, error) {
	var out []leasing.Lease
	for _, l := range r.leases {
		if req.UnitID != nil && l.UnitID != *req.UnitID {
			continue
		}
		if req.TenantID != nil && l.TenantID != *req.TenantID {
			continue
		}
		if req.Status != nil && l.Status != *req.Status {
			continue
		}
		out = append(out, l)
	}
	return out, len(out), nil
}

type fakePaymentRepo struct {
	payments map[int64]ledger.Payment
	nextID   int64
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[int64]ledger.Payment)}
}

func (r *fakePaymentRepo) Insert(ctx context.Context, p ledger.Payment) (int64, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.payments[p.ID] = p
	return p.ID, nil
}

func (r *fakePaymentRepo) Get(ctx context.Context, id int64) (*ledger.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %d: %w", id, shared.ErrNotFound)
	}
	return &p, nil
}

func (r *fakePaymentRepo) ListByLease(ctx context.Context, leaseID int64, limit, offset int) ([]ledger.Payment, int, error) {
	var out []ledger.Payment
	for _, p := range r.payments {
		if p.LeaseID == leaseID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.After(out[j].DueDate) })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakePaymentRepo) SumCompleted(ctx context.Context, leaseID int64, through time.Time) (float64, error) {
	var sum float64
	for _, p := range r.payments {
		if p.LeaseID != leaseID || p.Status != ledger.PaymentStatusCompleted || p.DueDate.After(through) {
			continue
		}
		sum += p.Amount
		if p.LateFee != nil {
			sum += *p.LateFee
		}
	}
	return sum, nil
}

func (r *fakePaymentRepo) UpdateStatus(ctx context.Context, id int64, from, to ledger.PaymentStatus, transactionRef *string) (bool, error) {
	p, ok := r.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if transactionRef != nil {
		p.TransactionRef = transactionRef
	}
	r.payments[id] = p
	return true, nil
}

func (r *fakePaymentRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]ledger.Payment, error) {
	var out []ledger.Payment
	for _, p := range r.payments {
		if p.Status != ledger.PaymentStatusPending || !p.CreatedAt.Before(olderThan) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func newTestFacade(units ...leasing.Unit) (*Facade, *fakePaymentRepo) {
	leaseRepo := newFakeLeaseRepo(units...)
	leaseService := leasing.NewService(leaseRepo, leasing.Defaults{GraceDays: 5, LateFeeAmount: 50}, nil)
	paymentRepo := newFakePaymentRepo()
	paymentService := ledger.NewService(paymentRepo, leaseService, nil, nil)
	return New(leaseService, paymentService), paymentRepo
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// The full tenancy arc: move in, pay January on time, pay February a week
// late (fee attaches, balance settles), move out, unit relets.
func TestFacadeTenancyArc(t *testing.T) {
	ctx := context.Background()
	facade, _ := newTestFacade(leasing.Unit{
		ID: 1, PropertyID: 1, Label: "3B", RentAmount: 1200, Status: leasing.UnitStatusVacant,
	})

	lease, err := facade.CreateLease(ctx, leasing.CreateLeaseRequest{
		UnitID:        1,
		TenantID:      7,
		LeaseType:     leasing.LeaseTypeFixedTerm,
		StartDate:     day(2024, time.January, 1),
		EndDate:       day(2024, time.December, 31),
		RentAmount:    1200,
		DepositAmount: 1200,
		RentDueDay:    1,
	})
	require.NoError(t, err)

	unit, err := facade.GetUnit(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, leasing.UnitStatusOccupied, unit.Status)

	active, err := facade.ActiveLeaseForUnit(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, lease.ID, active.ID)

	// A second lease on the occupied unit is refused.
	_, err = facade.CreateLease(ctx, leasing.CreateLeaseRequest{
		UnitID:        1,
		TenantID:      8,
		LeaseType:     leasing.LeaseTypeMonthToMonth,
		StartDate:     day(2024, time.June, 1),
		EndDate:       day(2025, time.June, 1),
		RentAmount:    1300,
		DepositAmount: 1300,
		RentDueDay:    1,
	})
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = facade.RecordPayment(ctx, ledger.RecordPaymentRequest{
		LeaseID:     lease.ID,
		Amount:      1200,
		PaymentDate: day(2024, time.January, 1),
		DueDate:     day(2024, time.January, 1),
		Method:      ledger.MethodBankTransfer,
		Settled:     true,
	})
	require.NoError(t, err)

	february, err := facade.RecordPayment(ctx, ledger.RecordPaymentRequest{
		LeaseID:     lease.ID,
		Amount:      1200,
		PaymentDate: day(2024, time.February, 7),
		DueDate:     day(2024, time.February, 1),
		Method:      ledger.MethodBankTransfer,
		Settled:     true,
	})
	require.NoError(t, err)
	require.NotNil(t, february.LateFee)
	require.Equal(t, 50.0, *february.LateFee)

	balance, err := facade.OutstandingBalance(ctx, lease.ID, day(2024, time.February, 7))
	require.NoError(t, err)
	require.Zero(t, balance.Outstanding)

	require.NoError(t, facade.TerminateLease(ctx, lease.ID))
	require.NoError(t, facade.TerminateLease(ctx, lease.ID))

	unit, err = facade.GetUnit(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, leasing.UnitStatusVacant, unit.Status)

	relet, err := facade.CreateLease(ctx, leasing.CreateLeaseRequest{
		UnitID:        1,
		TenantID:      8,
		LeaseType:     leasing.LeaseTypeMonthToMonth,
		StartDate:     day(2024, time.March, 1),
		EndDate:       day(2025, time.March, 1),
		RentAmount:    1300,
		DepositAmount: 1300,
		RentDueDay:    1,
	})
	require.NoError(t, err)
	require.NotEqual(t, lease.ID, relet.ID)
}

func TestFacadeMaintenanceCycle(t *testing.T) {
	ctx := context.Background()
	facade, _ := newTestFacade(leasing.Unit{
		ID: 1, PropertyID: 1, Label: "1A", RentAmount: 900, Status: leasing.UnitStatusVacant,
	})

	require.NoError(t, facade.SetUnitMaintenance(ctx, 1))

	_, err := facade.CreateLease(ctx, leasing.CreateLeaseRequest{
		UnitID:        1,
		TenantID:      5,
		LeaseType:     leasing.LeaseTypeFixedTerm,
		StartDate:     day(2024, time.April, 1),
		EndDate:       day(2025, time.April, 1),
		RentAmount:    900,
		DepositAmount: 900,
		RentDueDay:    5,
	})
	require.ErrorIs(t, err, shared.ErrConflict)

	require.NoError(t, facade.SetUnitVacant(ctx, 1))
	_, err = facade.CreateLease(ctx, leasing.CreateLeaseRequest{
		UnitID:        1,
		TenantID:      5,
		LeaseType:     leasing.LeaseTypeFixedTerm,
		StartDate:     day(2024, time.April, 1),
		EndDate:       day(2025, time.April, 1),
		RentAmount:    900,
		DepositAmount: 900,
		RentDueDay:    5,
	})
	require.NoError(t, err)
}

func TestFacadeExportPayments(t *testing.T) {
	ctx := context.Background()
	facade, _ := newTestFacade(leasing.Unit{
		ID: 1, PropertyID: 1, Label: "2C", RentAmount: 1200, Status: leasing.UnitStatusVacant,
	})

	lease, err := facade.CreateLease(ctx, leasing.CreateLeaseRequest{
		UnitID:        1,
		TenantID:      7,
		LeaseType:     leasing.LeaseTypeFixedTerm,
		StartDate:     day(2024, time.January, 1),
		EndDate:       day(2024, time.December, 31),
		RentAmount:    1200,
		DepositAmount: 1200,
		RentDueDay:    1,
	})
	require.NoError(t, err)

	_, err = facade.RecordPayment(ctx, ledger.RecordPaymentRequest{
		LeaseID:     lease.ID,
		Amount:      1200,
		PaymentDate: day(2024, time.January, 1),
		DueDate:     day(2024, time.January, 1),
		Method:      ledger.MethodCash,
		Settled:     true,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, facade.ExportPayments(ctx, &buf, lease.ID))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "number")
	require.Contains(t, lines[1], "2024-01-01")
}

// Histories longer than one page must export in full.
func TestFacadeExportPaymentsPagesThroughHistory(t *testing.T) {
	ctx := context.Background()
	facade, _ := newTestFacade(leasing.Unit{
		ID: 1, PropertyID: 1, Label: "2C", RentAmount: 1200, Status: leasing.UnitStatusVacant,
	})
	facade.exportPageSize = 2

	lease, err := facade.CreateLease(ctx, leasing.CreateLeaseRequest{
		UnitID:        1,
		TenantID:      7,
		LeaseType:     leasing.LeaseTypeFixedTerm,
		StartDate:     day(2024, time.January, 1),
		EndDate:       day(2024, time.December, 31),
		RentAmount:    1200,
		DepositAmount: 1200,
		RentDueDay:    1,
	})
	require.NoError(t, err)

	for _, month := range []time.Month{time.January, time.February, time.March, time.April, time.May} {
		_, err := facade.RecordPayment(ctx, ledger.RecordPaymentRequest{
			LeaseID:     lease.ID,
			Amount:      1200,
			PaymentDate: day(2024, month, 1),
			DueDate:     day(2024, month, 1),
			Method:      ledger.MethodCash,
			Settled:     true,
		})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, facade.ExportPayments(ctx, &buf, lease.ID))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6, "header plus all five payments")
}

func TestFacadeFailStalePending(t *testing.T) {
	ctx := context.Background()
	facade, paymentRepo := newTestFacade(leasing.Unit{
		ID: 1, PropertyID: 1, Label: "2C", RentAmount: 1200, Status: leasing.UnitStatusVacant,
	})

	lease, err := facade.CreateLease(ctx, leasing.CreateLeaseRequest{
		UnitID:        1,
		TenantID:      7,
		LeaseType:     leasing.LeaseTypeFixedTerm,
		StartDate:     day(2024, time.January, 1),
		EndDate:       day(2024, time.December, 31),
		RentAmount:    1200,
		DepositAmount: 1200,
		RentDueDay:    1,
	})
	require.NoError(t, err)

	pending, err := facade.RecordPayment(ctx, ledger.RecordPaymentRequest{
		LeaseID:     lease.ID,
		Amount:      1200,
		PaymentDate: day(2024, time.January, 1),
		DueDate:     day(2024, time.January, 1),
		Method:      ledger.MethodCard,
	})
	require.NoError(t, err)

	failed, err := facade.FailStalePending(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Equal(t, 1, failed)

	got, err := paymentRepo.Get(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.PaymentStatusFailed, got.Status)
}
