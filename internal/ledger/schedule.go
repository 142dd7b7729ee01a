package ledger

import (
	"time"

	"github.com/havenstead/rentledger/internal/leasing"
)

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FirstDueDate returns the first rent due date on or after the lease start.
// Due days are capped at 28 so adding calendar months never normalizes the
// day away.
func FirstDueDate(lease *leasing.Lease) time.Time {
	start := DateOnly(lease.StartDate)
	due := time.Date(start.Year(), start.Month(), lease.RentDueDay, 0, 0, 0, 0, time.UTC)
	if due.Before(start) {
		due = due.AddDate(0, 1, 0)
	}
	return due
}

// DueDatesThrough lists every due date implied by the lease schedule up to
// asOf, never past the lease end date.
func DueDatesThrough(lease *leasing.Lease, asOf time.Time) []time.Time {
	asOf = DateOnly(asOf)
	end := DateOnly(lease.EndDate)
	if end.Before(asOf) {
		asOf = end
	}

	var dues []time.Time
	for due := FirstDueDate(lease); !due.After(asOf); due = due.AddDate(0, 1, 0) {
		dues = append(dues, due)
	}
	return dues
}

// OnSchedule reports whether due is a due date the lease schedule implies.
func OnSchedule(lease *leasing.Lease, due time.Time) bool {
	due = DateOnly(due)
	if due.Day() != lease.RentDueDay {
		return false
	}
	if due.Before(FirstDueDate(lease)) {
		return false
	}
	return !due.After(DateOnly(lease.EndDate))
}
