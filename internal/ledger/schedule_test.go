package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/havenstead/rentledger/internal/leasing"
)

func scheduleLease(start, end time.Time, dueDay int) *leasing.Lease {
	return &leasing.Lease{
		StartDate:  start,
		EndDate:    end,
		RentDueDay: dueDay,
		RentAmount: 1000,
		Status:     leasing.LeaseStatusActive,
	}
}

func TestFirstDueDate(t *testing.T) {
	cases := []struct {
		name   string
		start  time.Time
		dueDay int
		want   time.Time
	}{
		{"start on due day", date(2024, time.January, 1), 1, date(2024, time.January, 1)},
		{"due day later in month", date(2024, time.January, 1), 15, date(2024, time.January, 15)},
		{"due day already passed", date(2024, time.January, 20), 15, date(2024, time.February, 15)},
		{"due day 28 in february", date(2024, time.February, 1), 28, date(2024, time.February, 28)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lease := scheduleLease(tc.start, tc.start.AddDate(1, 0, 0), tc.dueDay)
			require.Equal(t, tc.want, FirstDueDate(lease))
		})
	}
}

func TestDueDatesThrough(t *testing.T) {
	lease := scheduleLease(date(2024, time.January, 10), date(2024, time.June, 30), 15)

	dues := DueDatesThrough(lease, date(2024, time.March, 20))
	require.Equal(t, []time.Time{
		date(2024, time.January, 15),
		date(2024, time.February, 15),
		date(2024, time.March, 15),
	}, dues)

	// Nothing accrues before the first due date.
	require.Empty(t, DueDatesThrough(lease, date(2024, time.January, 14)))

	// The schedule stops at the lease end, even for a later asOf.
	dues = DueDatesThrough(lease, date(2025, time.January, 1))
	require.Len(t, dues, 6)
	require.Equal(t, date(2024, time.June, 15), dues[len(dues)-1])
}

func TestOnSchedule(t *testing.T) {
	lease := scheduleLease(date(2024, time.January, 10), date(2024, time.June, 30), 15)

	require.True(t, OnSchedule(lease, date(2024, time.January, 15)))
	require.True(t, OnSchedule(lease, date(2024, time.June, 15)))

	// Wrong day of month.
	require.False(t, OnSchedule(lease, date(2024, time.February, 14)))
	// Before the first due date.
	require.False(t, OnSchedule(lease, date(2023, time.December, 15)))
	// Past the lease end.
	require.False(t, OnSchedule(lease, date(2024, time.July, 15)))
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("X", -7*3600)
	stamped := time.Date(2024, time.March, 5, 23, 45, 12, 0, loc)
	require.Equal(t, date(2024, time.March, 5), DateOnly(stamped))
}
