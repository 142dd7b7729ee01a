package leasing

import "time"

// CreateLeaseRequest opens a lease on a vacant unit.
type CreateLeaseRequest struct {
	UnitID        int64     `json:"unit_id" validate:"required,gt=0"`
	TenantID      int64     `json:"tenant_id" validate:"required,gt=0"`
	LeaseType     LeaseType `json:"lease_type" validate:"required,oneof=FIXED_TERM MONTH_TO_MONTH"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	RentAmount    float64   `json:"rent_amount" validate:"required,gt=0"`
	DepositAmount float64   `json:"deposit_amount" validate:"gte=0"`
	RentDueDay    int       `json:"rent_due_day" validate:"required,min=1,max=28"`
	GraceDays     *int      `json:"grace_days,omitempty" validate:"omitempty,gte=0"`
	LateFeeAmount *float64  `json:"late_fee_amount,omitempty" validate:"omitempty,gte=0"`
}

// ListLeasesRequest filters the lease listing.
type ListLeasesRequest struct {
	UnitID   *int64       `json:"unit_id,omitempty"`
	TenantID *int64       `json:"tenant_id,omitempty"`
	Status   *LeaseStatus `json:"status,omitempty"`
	Limit    int          `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int          `json:"offset" validate:"gte=0"`
}
