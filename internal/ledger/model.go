package ledger

import "time"

// PaymentStatus enumerates payment states.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// allowedTransitions is the full transition set. A failed payment is dead:
// it must be resubmitted as a new record, never resurrected.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusFailed},
	PaymentStatusFailed:    {},
}

// Valid reports whether the status is a known enumeration value.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether s may move to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod enumerates remittance channels.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCard         PaymentMethod = "CARD"
	MethodCheck        PaymentMethod = "CHECK"
	MethodOther        PaymentMethod = "OTHER"
)

// Payment is one recorded rent remittance or correction against a lease.
// Records are append-only; edits are corrections, never reversals.
type Payment struct {
	ID             int64         `json:"id" db:"id"`
	Number         string        `json:"number" db:"number"`
	LeaseID        int64         `json:"lease_id" db:"lease_id"`
	TenantID       int64         `json:"tenant_id" db:"tenant_id"`
	Amount         float64       `json:"amount" db:"amount"`
	LateFee        *float64      `json:"late_fee,omitempty" db:"late_fee"`
	PaymentDate    time.Time     `json:"payment_date" db:"payment_date"`
	DueDate        time.Time     `json:"due_date" db:"due_date"`
	Method         PaymentMethod `json:"method" db:"method"`
	Status         PaymentStatus `json:"status" db:"status"`
	TransactionRef *string       `json:"transaction_ref,omitempty" db:"transaction_ref"`
	Notes          *string       `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Balance answers "what is owed on this lease as of a date". Outstanding is
// floor-clamped at zero; an overpaying tenant shows the excess in Surplus
// rather than a negative balance.
type Balance struct {
	LeaseID     int64     `json:"lease_id"`
	AsOf        time.Time `json:"as_of"`
	PeriodsDue  int       `json:"periods_due"`
	RentDue     float64   `json:"rent_due"`
	PaidTotal   float64   `json:"paid_total"`
	Outstanding float64   `json:"outstanding"`
	Surplus     float64   `json:"surplus"`
}
