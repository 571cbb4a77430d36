package recurrence

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// weekdayCodes is indexed by time.Weekday, which is also the canonical
// serialization order SU,MO,TU,WE,TH,FR,SA.
var weekdayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

var engineWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// WeekdayCode returns the two-letter RFC 5545 code of d.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d%7]
}

// ParseWeekdayCode parses a two-letter code such as "MO" (case-insensitive).
func ParseWeekdayCode(code string) (time.Weekday, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	for i, known := range weekdayCodes {
		if known == c {
			return time.Weekday(i), nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: %q", ErrUnknownWeekday, code)
}

// WeekdayOrder lists the seven weekdays for display, starting at first.
// It does not affect serialization order.
func WeekdayOrder(first time.Weekday) []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for i := 0; i < 7; i++ {
		days = append(days, (first+time.Weekday(i))%7)
	}
	return days
}

func toEngineWeekday(d time.Weekday) rrule.Weekday {
	return engineWeekdays[d%7]
}

// rrule-go numbers weekdays from Monday.
func fromEngineWeekday(w rrule.Weekday) time.Weekday {
	return time.Weekday((w.Day() + 1) % 7)
}

// WeekdaySet is an unordered set of weekdays. The zero value is empty.
type WeekdaySet uint8

// NewWeekdaySet builds a set from days.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.Add(d)
	}
	return s
}

func (s WeekdaySet) Add(d time.Weekday) WeekdaySet {
	return s | 1<<(d%7)
}

func (s WeekdaySet) Remove(d time.Weekday) WeekdaySet {
	return s &^ (1 << (d % 7))
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<(d%7)) != 0
}

func (s WeekdaySet) Len() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			n++
		}
	}
	return n
}

func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Days returns the members in canonical week order regardless of insertion order.
func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// Codes returns the members as two-letter codes in canonical order.
func (s WeekdaySet) Codes() []string {
	days := s.Days()
	codes := make([]string, len(days))
	for i, d := range days {
		codes[i] = WeekdayCode(d)
	}
	return codes
}

func (s WeekdaySet) String() string {
	return strings.Join(s.Codes(), ",")
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	codes := s.Codes()
	if codes == nil {
		codes = []string{}
	}
	return json.Marshal(codes)
}

func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	var set WeekdaySet
	for _, code := range codes {
		d, err := ParseWeekdayCode(code)
		if err != nil {
			return err
		}
		set = set.Add(d)
	}
	*s = set
	return nil
}

// MonthlyWeekday is an ordinal weekday within a month: a positive ordinal N is
// the Nth such weekday from the start of the month, -1 is the last one.
type MonthlyWeekday struct {
	Weekday time.Weekday
	Ordinal int
}

// String renders the BYDAY token, e.g. "+4TU" or "-1MO".
func (m MonthlyWeekday) String() string {
	return fmt.Sprintf("%+d%s", m.Ordinal, WeekdayCode(m.Weekday))
}

// ParseMonthlyWeekday parses an ordinal weekday token such as "+2WE" or "-1MO".
// A missing sign means a positive ordinal. Tokens without an ordinal are rejected.
func ParseMonthlyWeekday(token string) (MonthlyWeekday, error) {
	t := strings.ToUpper(strings.TrimSpace(token))
	if len(t) < 3 {
		return MonthlyWeekday{}, fmt.Errorf("%w: ordinal weekday %q", ErrUnknownWeekday, token)
	}
	day, err := ParseWeekdayCode(t[len(t)-2:])
	if err != nil {
		return MonthlyWeekday{}, err
	}
	n, err := strconv.Atoi(t[:len(t)-2])
	if err != nil || n == 0 || n < -5 || n > 5 {
		return MonthlyWeekday{}, fmt.Errorf("%w: ordinal weekday %q", ErrUnknownWeekday, token)
	}
	return MonthlyWeekday{Weekday: day, Ordinal: n}, nil
}

func (m MonthlyWeekday) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MonthlyWeekday) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthlyWeekday(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m MonthlyWeekday) engineWeekday() rrule.Weekday {
	w := toEngineWeekday(m.Weekday)
	return w.Nth(m.Ordinal)
}
