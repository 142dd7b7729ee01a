// Package lifecycle exposes the single surface external collaborators call.
// The landlord dashboard and tenant portal go through the facade for every
// lease, unit, and payment mutation; nothing else writes those aggregates.
package lifecycle

import (
	"context"
	"io"
	"time"

	"github.com/havenstead/rentledger/internal/leasing"
	"github.com/havenstead/rentledger/internal/ledger"
)

// Facade composes the lease lifecycle manager and the payment ledger. Each
// multi-step effect runs inside one repository transaction, so a reader never
// observes a unit marked occupied without its active lease or vice versa.
type Facade struct {
	leases         *leasing.Service
	payments       *ledger.Service
	exportPageSize int
}

// New builds the facade.
func New(leases *leasing.Service, payments *ledger.Service) *Facade {
	return &Facade{leases: leases, payments: payments, exportPageSize: 500}
}

// CreateLease opens a lease and occupies its unit atomically.
func (f *Facade) CreateLease(ctx context.Context, req leasing.CreateLeaseRequest) (*leasing.Lease, error) {
	return f.leases.CreateLease(ctx, req)
}

// TerminateLease closes a lease and vacates its unit. Idempotent.
func (f *Facade) TerminateLease(ctx context.Context, leaseID int64) error {
	return f.leases.TerminateLease(ctx, leaseID)
}

// ActiveLeaseForUnit returns the active lease, or nil when the unit is vacant.
func (f *Facade) ActiveLeaseForUnit(ctx context.Context, unitID int64) (*leasing.Lease, error) {
	return f.leases.ActiveLeaseForUnit(ctx, unitID)
}

// GetLease fetches a lease.
func (f *Facade) GetLease(ctx context.Context, leaseID int64) (*leasing.Lease, error) {
	return f.leases.GetLease(ctx, leaseID)
}

// GetUnit fetches a unit.
func (f *Facade) GetUnit(ctx context.Context, unitID int64) (*leasing.Unit, error) {
	return f.leases.GetUnit(ctx, unitID)
}

// ListLeases lists leases with filters.
func (f *Facade) ListLeases(ctx context.Context, req leasing.ListLeasesRequest) ([]leasing.Lease, int, error) {
	return f.leases.ListLeases(ctx, req)
}

// SetUnitMaintenance takes a vacant unit out of circulation.
func (f *Facade) SetUnitMaintenance(ctx context.Context, unitID int64) error {
	return f.leases.SetUnitMaintenance(ctx, unitID)
}

// SetUnitVacant returns a maintenance unit to circulation.
func (f *Facade) SetUnitVacant(ctx context.Context, unitID int64) error {
	return f.leases.SetUnitVacant(ctx, unitID)
}

// RecordPayment appends a payment to the ledger.
func (f *Facade) RecordPayment(ctx context.Context, req ledger.RecordPaymentRequest) (*ledger.Payment, error) {
	return f.payments.RecordPayment(ctx, req)
}

// UpdatePaymentStatus advances a payment's status under compare-and-swap.
func (f *Facade) UpdatePaymentStatus(ctx context.Context, paymentID int64, status ledger.PaymentStatus, transactionRef *string) (*ledger.Payment, error) {
	return f.payments.UpdatePaymentStatus(ctx, paymentID, status, transactionRef)
}

// OutstandingBalance reports what is owed on a lease as of a date.
func (f *Facade) OutstandingBalance(ctx context.Context, leaseID int64, asOf time.Time) (*ledger.Balance, error) {
	return f.payments.OutstandingBalance(ctx, leaseID, asOf)
}

// GetPayment fetches one payment.
func (f *Facade) GetPayment(ctx context.Context, paymentID int64) (*ledger.Payment, error) {
	return f.payments.GetPayment(ctx, paymentID)
}

// ListPayments pages through a lease's history.
func (f *Facade) ListPayments(ctx context.Context, req ledger.ListPaymentsRequest) ([]ledger.Payment, int, error) {
	return f.payments.ListPayments(ctx, req)
}

// ExportPayments writes a lease's full payment history as CSV, paging through
// the ledger until exhausted.
func (f *Facade) ExportPayments(ctx context.Context, w io.Writer, leaseID int64) error {
	var all []ledger.Payment
	for offset := 0; ; offset += f.exportPageSize {
		page, total, err := f.payments.ListPayments(ctx, ledger.ListPaymentsRequest{
			LeaseID: leaseID,
			Limit:   f.exportPageSize,
			Offset:  offset,
		})
		if err != nil {
			return err
		}
		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			break
		}
	}
	return ledger.WriteCSV(w, all)
}

// FailStalePending is the reconciliation entry point used by the worker.
func (f *Facade) FailStalePending(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	return f.payments.FailStalePending(ctx, olderThan, limit)
}
