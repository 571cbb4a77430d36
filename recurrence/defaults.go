package recurrence

import (
	"fmt"
	"time"
)

// DefaultCount is the occurrence count offered when a rule switches to ending
// after a number of occurrences.
func DefaultCount(freq Frequency) int {
	switch freq {
	case FrequencyYearly:
		return 5
	case FrequencyMonthly:
		return 12
	case FrequencyWeekly:
		return 13
	case FrequencyDaily:
		return 30
	default:
		return 1
	}
}

// DefaultUntil is the end date offered when a rule switches to ending on a
// date: DefaultCount(freq) units after now, at UTC midnight.
func DefaultUntil(now time.Time, freq Frequency) time.Time {
	now = now.UTC()
	n := DefaultCount(freq)

	var until time.Time
	switch freq {
	case FrequencyYearly:
		until = now.AddDate(n, 0, 0)
	case FrequencyMonthly:
		until = now.AddDate(0, n, 0)
	case FrequencyWeekly:
		until = now.AddDate(0, 0, 7*n)
	default:
		until = now.AddDate(0, 0, n)
	}
	return time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, time.UTC)
}

// IntervalSuffix is the unit label shown next to the interval field.
func IntervalSuffix(freq Frequency) string {
	switch freq {
	case FrequencyYearly:
		return "years"
	case FrequencyMonthly:
		return "months"
	case FrequencyWeekly:
		return "weeks"
	case FrequencyDaily:
		return "days"
	default:
		return ""
	}
}

// DateLayout is the layout of editable until and start dates.
const DateLayout = "2006-01-02"

// ParseDate parses an editable YYYY-MM-DD date as UTC midnight.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t, nil
}

// FormatDate renders t as an editable YYYY-MM-DD date in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
