package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculateDays returns the inclusive calendar-day count between start and end.
// Only the date part of each value is considered.
func CalculateDays(start, end time.Time) (decimal.Decimal, error) {
	s, e := civilDate(start), civilDate(end)
	if e.Before(s) {
		return decimal.Zero, &ValidationError{Field: "endDate", Reason: "end date before start date"}
	}
	days := int64(e.Sub(s)/(24*time.Hour)) + 1
	return decimal.NewFromInt(days), nil
}

// civilDate drops the clock and zone so dates from DATE columns and from
// local clocks compare by their calendar day.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// endOfMonth is the last instant of the month in loc.
func endOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
}

func monthIndex(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

func fromMonthIndex(idx int) (int, time.Month) {
	return idx / 12, time.Month(idx%12 + 1)
}
