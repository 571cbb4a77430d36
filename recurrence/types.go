package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Frequency is the repeat unit selected in the editor
type Frequency int

const (
	// FrequencyUndefined marks a rule string that could not be interpreted.
	// It is never a valid selection.
	FrequencyUndefined Frequency = iota
	FrequencyNone
	FrequencyYearly
	FrequencyMonthly
	FrequencyWeekly
	FrequencyDaily
)

var frequencyNames = map[Frequency]string{
	FrequencyUndefined: "undefined",
	FrequencyNone:      "none",
	FrequencyYearly:    "yearly",
	FrequencyMonthly:   "monthly",
	FrequencyWeekly:    "weekly",
	FrequencyDaily:     "daily",
}

// String provides the lower-case name used by select options.
func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// ParseFrequency parses a frequency name. The undefined sentinel cannot be parsed.
func ParseFrequency(s string) (Frequency, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range frequencyNames {
		if f != FrequencyUndefined && n == name {
			return f, nil
		}
	}
	return FrequencyUndefined, fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
}

// Recurring reports whether f selects an actual repeat unit.
func (f Frequency) Recurring() bool {
	return f == FrequencyYearly || f == FrequencyMonthly || f == FrequencyWeekly || f == FrequencyDaily
}

func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Frequency) UnmarshalText(text []byte) error {
	if string(text) == frequencyNames[FrequencyUndefined] {
		*f = FrequencyUndefined
		return nil
	}
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// EndMode tells how a recurring rule terminates
type EndMode int

const (
	EndNever EndMode = iota
	EndAfterCount
	EndUntilDate
)

var endModeNames = map[EndMode]string{
	EndNever:      "never",
	EndAfterCount: "after",
	EndUntilDate:  "on",
}

func (m EndMode) String() string {
	if name, ok := endModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("EndMode(%d)", int(m))
}

// ParseEndMode accepts the select option values "never", "after" and "on".
func ParseEndMode(s string) (EndMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range endModeNames {
		if n == name {
			return m, nil
		}
	}
	return EndNever, fmt.Errorf("%w: %q", ErrUnknownEndMode, s)
}

func (m EndMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *EndMode) UnmarshalText(text []byte) error {
	parsed, err := ParseEndMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// RuleState is the structured form of a recurrence rule as shown by the editor.
type RuleState struct {
	Frequency Frequency `json:"frequency"`
	// Interval is "every N units"; 1 is the default and is never serialized.
	Interval int        `json:"interval"`
	Weekdays WeekdaySet `json:"weekdays"`
	// MonthlyWeekday is set when a monthly rule repeats on an ordinal weekday
	// instead of the day of the month.
	MonthlyWeekday mo.Option[MonthlyWeekday] `json:"monthlyWeekday"`
	End            EndMode                   `json:"end"`
	Count          mo.Option[int]            `json:"count"`
	Until          mo.Option[time.Time]      `json:"until"`
}

// DefaultRuleState is the state of an empty rule string.
func DefaultRuleState() RuleState {
	return RuleState{
		Frequency: FrequencyNone,
		Interval:  1,
		End:       EndNever,
	}
}

var (
	ErrUnknownFrequency = errors.New("unknown frequency")
	ErrUnknownEndMode   = errors.New("unknown end mode")
	ErrUnknownWeekday   = errors.New("unknown weekday")
	ErrInvalidInterval  = errors.New("interval must be at least 1")
	ErrInvalidCount     = errors.New("count must be at least 1")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidState     = errors.New("invalid rule state")
)

// Validate checks the invariants that tie the end condition to count and until.
func (s RuleState) Validate() error {
	if s.Interval < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrInvalidInterval)
	}
	switch s.End {
	case EndNever:
		if s.Count.IsPresent() || s.Until.IsPresent() {
			return fmt.Errorf("%w: count and until must be unset when the rule never ends", ErrInvalidState)
		}
	case EndAfterCount:
		count, ok := s.Count.Get()
		if !ok || s.Until.IsPresent() {
			return fmt.Errorf("%w: after-count requires count only", ErrInvalidState)
		}
		if count < 1 {
			return fmt.Errorf("%w: %w", ErrInvalidState, ErrInvalidCount)
		}
	case EndUntilDate:
		if !s.Until.IsPresent() || s.Count.IsPresent() {
			return fmt.Errorf("%w: until-date requires until only", ErrInvalidState)
		}
	default:
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrUnknownEndMode)
	}
	return nil
}
