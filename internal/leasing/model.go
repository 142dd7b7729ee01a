package leasing

import "time"

// UnitStatus enumerates unit occupancy states.
type UnitStatus string

const (
	UnitStatusVacant      UnitStatus = "VACANT"
	UnitStatusOccupied    UnitStatus = "OCCUPIED"
	UnitStatusMaintenance UnitStatus = "MAINTENANCE"
)

// LeaseStatus enumerates lease states. Termination is irreversible.
type LeaseStatus string

const (
	LeaseStatusActive     LeaseStatus = "ACTIVE"
	LeaseStatusTerminated LeaseStatus = "TERMINATED"
)

// LeaseType enumerates contract kinds.
type LeaseType string

const (
	LeaseTypeFixedTerm    LeaseType = "FIXED_TERM"
	LeaseTypeMonthToMonth LeaseType = "MONTH_TO_MONTH"
)

// Unit is a rentable space within a property. Status is mutated only by the
// lease lifecycle: Occupied exactly when one active lease references it.
type Unit struct {
	ID         int64      `json:"id" db:"id"`
	PropertyID int64      `json:"property_id" db:"property_id"`
	Label      string     `json:"label" db:"label"`
	Bedrooms   int        `json:"bedrooms" db:"bedrooms"`
	Bathrooms  float64    `json:"bathrooms" db:"bathrooms"`
	AreaSqm    float64    `json:"area_sqm" db:"area_sqm"`
	RentAmount float64    `json:"rent_amount" db:"rent_amount"`
	Status     UnitStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Lease binds one tenant to one unit for a date range.
type Lease struct {
	ID            int64       `json:"id" db:"id"`
	UnitID        int64       `json:"unit_id" db:"unit_id"`
	TenantID      int64       `json:"tenant_id" db:"tenant_id"`
	LeaseType     LeaseType   `json:"lease_type" db:"lease_type"`
	StartDate     time.Time   `json:"start_date" db:"start_date"`
	EndDate       time.Time   `json:"end_date" db:"end_date"`
	RentAmount    float64     `json:"rent_amount" db:"rent_amount"`
	DepositAmount float64     `json:"deposit_amount" db:"deposit_amount"`
	RentDueDay    int         `json:"rent_due_day" db:"rent_due_day"`
	GraceDays     int         `json:"grace_days" db:"grace_days"`
	LateFeeAmount float64     `json:"late_fee_amount" db:"late_fee_amount"`
	Status        LeaseStatus `json:"status" db:"status"`
	TerminatedAt  *time.Time  `json:"terminated_at,omitempty" db:"terminated_at"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// Active reports whether the lease is currently in force.
func (l *Lease) Active() bool {
	return l != nil && l.Status == LeaseStatusActive
}
