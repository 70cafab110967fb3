package core

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01-02"

// MonthKey returns the YYYY-MM prefix of a ledger month string.
func MonthKey(month string) string {
	if len(month) < 7 {
		return month
	}
	return month[:7]
}

// RelativeMonthIndex returns the 1-based position of month counted in whole
// calendar months from firstMonth. Months at or before firstMonth are 1.
func RelativeMonthIndex(firstMonth, month string) (int, error) {
	first, err := time.Parse(monthLayout, firstMonth)
	if err != nil {
		return 0, fmt.Errorf("%w: first month %q", ErrInvalidDate, firstMonth)
	}
	target, err := time.Parse(monthLayout, month)
	if err != nil {
		return 0, fmt.Errorf("%w: month %q", ErrInvalidDate, month)
	}

	index := 1
	for step := 0; addMonths(first, step).Before(target); step++ {
		index++
	}
	return index, nil
}

func addMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), t.Day(), 0, 0, 0, 0, time.UTC)
}
