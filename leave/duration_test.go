package leave_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

func days(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeDays_InclusiveRange(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  string
	}{
		{"single day", leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 10), "1"},
		{"full week", leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 14), "5"},
		{"weekends count", leave.NewDate(2025, time.March, 7), leave.NewDate(2025, time.March, 10), "4"},
		{"across month end", leave.NewDate(2025, time.February, 27), leave.NewDate(2025, time.March, 2), "4"},
		{"leap day", leave.NewDate(2024, time.February, 28), leave.NewDate(2024, time.March, 1), "3"},
		{"across year end", leave.NewDate(2024, time.December, 30), leave.NewDate(2025, time.January, 2), "4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := leave.ComputeDays(tt.start, tt.end, false)
			require.NoError(t, err)
			assert.True(t, days(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestComputeDays_HalfDay(t *testing.T) {
	d := leave.NewDate(2025, time.March, 10)

	got, err := leave.ComputeDays(d, d, true)
	require.NoError(t, err)
	assert.True(t, days("0.5").Equal(got))
}

func TestComputeDays_HalfDayAcrossDays_Rejected(t *testing.T) {
	_, err := leave.ComputeDays(leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 11), true)

	require.ErrorIs(t, err, leave.ErrInvalidDateRange)
	var rangeErr *leave.DateRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.True(t, rangeErr.HalfDay)
}

func TestComputeDays_EndBeforeStart_Rejected(t *testing.T) {
	_, err := leave.ComputeDays(leave.NewDate(2025, time.March, 10), leave.NewDate(2025, time.March, 9), false)

	assert.ErrorIs(t, err, leave.ErrInvalidDateRange)
}

func TestComputeDays_IgnoresTimeOfDay(t *testing.T) {
	// GIVEN: Timestamps late and early on consecutive days
	// THEN: Only the calendar dates matter
	start := time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 11, 0, 15, 0, 0, time.UTC)

	got, err := leave.ComputeDays(start, end, false)
	require.NoError(t, err)
	assert.True(t, days("2").Equal(got))
}

func TestDay_UsesOwnLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	t0 := time.Date(2025, time.March, 10, 1, 0, 0, 0, loc)

	assert.Equal(t, leave.NewDate(2025, time.March, 10), leave.Day(t0))
}

func TestDaysBetween(t *testing.T) {
	a := leave.NewDate(2025, time.March, 10)
	b := leave.NewDate(2025, time.March, 17)

	assert.Equal(t, 7, leave.DaysBetween(a, b))
	assert.Equal(t, -7, leave.DaysBetween(b, a))
	assert.Equal(t, 0, leave.DaysBetween(a, a))
}

func TestComputeDays_CenturiesLongRange(t *testing.T) {
	// GIVEN: A range longer than time.Duration can hold (~292 years)
	// THEN: Still (end - start) + 1; 400 Gregorian years are 146097 days
	start := leave.NewDate(1700, time.January, 1)
	end := leave.NewDate(2100, time.January, 1)

	got, err := leave.ComputeDays(start, end, false)
	require.NoError(t, err)
	assert.True(t, days("146098").Equal(got), "got %s", got)
	assert.Equal(t, -146097, leave.DaysBetween(end, start))
}
