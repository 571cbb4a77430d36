package recurrence

import "time"

// MonthlyOccurrences lists the ordinal weekday labels that denote date within
// its month, e.g. 2022-10-25 is both the fourth and the last Tuesday and yields
// [+4TU -1TU]. A fifth occurrence is always the last one and is only labelled -1.
func MonthlyOccurrences(date time.Time) []MonthlyWeekday {
	weekday := date.Weekday()
	day := date.Day()
	nth := (day-1)/7 + 1

	var result []MonthlyWeekday
	if nth <= 4 {
		result = append(result, MonthlyWeekday{Weekday: weekday, Ordinal: nth})
	}
	if day+7 > daysInMonth(date) {
		result = append(result, MonthlyWeekday{Weekday: weekday, Ordinal: -1})
	}
	return result
}

func daysInMonth(date time.Time) int {
	// day 0 of the next month is the last day of this one
	return time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
