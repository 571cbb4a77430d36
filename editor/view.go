package editor

import (
	"time"

	"github.com/cyp0633/rruledit/recurrence"
	"github.com/samber/mo"
)

// WeekdayToggle is one button of the weekly day picker
type WeekdayToggle struct {
	Weekday time.Weekday
	Code    string
	On      bool
}

// WeekdayToggles lists the seven weekdays starting at the configured first day
func (e *Editor) WeekdayToggles() []WeekdayToggle {
	e.mu.Lock()
	defer e.mu.Unlock()

	days := recurrence.WeekdayOrder(e.firstWeekday)
	toggles := make([]WeekdayToggle, len(days))
	for i, d := range days {
		toggles[i] = WeekdayToggle{
			Weekday: d,
			Code:    recurrence.WeekdayCode(d),
			On:      e.state.Weekdays.Has(d),
		}
	}
	return toggles
}

// MonthlyOption is one entry of the monthly pattern select
type MonthlyOption struct {
	// Value is MonthlyByDay or an ordinal weekday token
	Value    string
	Weekday  mo.Option[recurrence.MonthlyWeekday]
	Selected bool
}

// MonthlyOptions lists "by day of month" followed by every ordinal weekday
// label of the start date. Without a start date only MonthlyByDay is offered.
func (e *Editor) MonthlyOptions() []MonthlyOption {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, hasCurrent := e.state.MonthlyWeekday.Get()
	options := []MonthlyOption{{Value: MonthlyByDay, Selected: !hasCurrent}}

	start, ok := e.start.Get()
	if !ok {
		return options
	}
	for _, occ := range recurrence.MonthlyOccurrences(start) {
		options = append(options, MonthlyOption{
			Value:    occ.String(),
			Weekday:  mo.Some(occ),
			Selected: hasCurrent && occ == current,
		})
	}
	return options
}

// IntervalSuffix is the unit label for the current frequency
func (e *Editor) IntervalSuffix() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return recurrence.IntervalSuffix(e.state.Frequency)
}

// Preview returns the next n occurrences of the current rule from the start
// date. Without a start date it counts from today (UTC midnight).
func (e *Editor) Preview(n int) ([]time.Time, error) {
	e.mu.Lock()
	rule := recurrence.Encode(e.state)
	start, ok := e.start.Get()
	if !ok {
		start = today(e.clock())
	}
	engine := e.engine
	e.mu.Unlock()

	if rule == "" {
		return nil, nil
	}
	return engine.Next(start, rule, start, n)
}

func today(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
