package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALENDAR DAYS
// =============================================================================

var halfDay = decimal.NewFromFloat(0.5)

// NewDate returns midnight UTC of the given calendar day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day drops the time-of-day. The calendar date is read in t's own location
// so "2025-03-10 23:30 +02:00" stays March 10.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns to - from in whole calendar days; negative when to
// is before from. Counted on Unix seconds, not time.Duration, which
// saturates after about 292 years.
func DaysBetween(from, to time.Time) int {
	return int((Day(to).Unix() - Day(from).Unix()) / secondsPerDay)
}

// =============================================================================
// DURATION CALCULATOR
// =============================================================================

// ComputeDays returns the chargeable day count for an inclusive range.
// A half-day request must start and end on the same day and is worth 0.5.
func ComputeDays(start, end time.Time, isHalfDay bool) (decimal.Decimal, error) {
	span := DaysBetween(start, end)
	if span < 0 {
		return decimal.Zero, &DateRangeError{Start: Day(start), End: Day(end)}
	}
	if isHalfDay {
		if span != 0 {
			return decimal.Zero, &DateRangeError{Start: Day(start), End: Day(end), HalfDay: true}
		}
		return halfDay, nil
	}
	return decimal.NewFromInt(int64(span + 1)), nil
}
