package ledger

import "time"

// RecordPaymentRequest appends one payment to a lease's ledger. Settled is a
// configuration input from the caller: landlords recording money already in
// hand set it, tenant portal submissions awaiting confirmation do not.
type RecordPaymentRequest struct {
	LeaseID        int64         `json:"lease_id" validate:"required,gt=0"`
	Amount         float64       `json:"amount" validate:"required,gt=0"`
	PaymentDate    time.Time     `json:"payment_date" validate:"required"`
	DueDate        time.Time     `json:"due_date" validate:"required"`
	Method         PaymentMethod `json:"method" validate:"required,oneof=CASH BANK_TRANSFER CARD CHECK OTHER"`
	Settled        bool          `json:"settled"`
	TransactionRef *string       `json:"transaction_ref,omitempty"`
	Notes          *string       `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// UpdatePaymentStatusRequest moves a payment through its transition set.
type UpdatePaymentStatusRequest struct {
	Status         PaymentStatus `json:"status" validate:"required,oneof=PENDING COMPLETED FAILED"`
	TransactionRef *string       `json:"transaction_ref,omitempty"`
}

// ListPaymentsRequest pages through a lease's payment history.
type ListPaymentsRequest struct {
	LeaseID int64 `json:"lease_id" validate:"required,gt=0"`
	Limit   int   `json:"limit" validate:"gte=0,lte=1000"`
	Offset  int   `json:"offset" validate:"gte=0"`
}
