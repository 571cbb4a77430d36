// Package editor holds the stateful side of recurrence rule editing: one
// RuleState per instance, mutated by form interactions and re-encoded after
// every change.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cyp0633/rruledit/recurrence"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// MonthlyByDay selects the default monthly pattern: the start date's day of month.
const MonthlyByDay = "BYMONTHDAY"

// ErrNoStart is returned by operations that need a start date when none is set
var ErrNoStart = errors.New("no start date")

// Editor owns one RuleState and the last rule string it received or emitted.
// Listeners are called outside the internal lock, so a listener may feed the
// emitted rule straight back through SetValue.
type Editor struct {
	mu sync.Mutex

	id           uuid.UUID
	logger       *slog.Logger
	state        recurrence.RuleState
	lastKnown    string
	start        mo.Option[time.Time]
	firstWeekday time.Weekday
	clock        func() time.Time
	engine       *recurrence.Engine
	listeners    []func(rule string)
	initial      string
}

// New creates an editor. Without WithValue it starts from the empty rule.
func New(opts ...Option) *Editor {
	e := &Editor{
		id:           uuid.New(),
		logger:       discardLogger(),
		state:        recurrence.DefaultRuleState(),
		firstWeekday: time.Monday,
		clock:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("editor_id", e.id.String())
	if e.engine == nil {
		e.engine = recurrence.NewEngineWithConfig(recurrence.UncachedConfig)
	}
	e.decodeLocked(e.initial)
	e.initial = ""

	return e
}

// ID identifies the editor in logs
func (e *Editor) ID() uuid.UUID {
	return e.id
}

// SetValue reflects an externally owned rule string into the editor. A value
// equal to the last one received or emitted is ignored; anything else replaces
// the whole state. No notification is fired.
//
// A rule the editor cannot represent leaves the frequency undefined. Until
// SelectFrequency picks one, other setters leave the state alone and emit
// nothing, so the owner's rule is kept.
func (e *Editor) SetValue(rule string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rule == e.lastKnown {
		return
	}
	e.decodeLocked(rule)
}

func (e *Editor) decodeLocked(rule string) {
	state, err := recurrence.DecodeWith(rule, recurrence.DecodeOptions{FirstWeekday: mo.Some(e.firstWeekday)})
	if err != nil {
		e.logger.Warn("unsupported recurrence rule",
			"rule", rule,
			"error", err)
	}
	e.state = state
	e.lastKnown = rule
}

// Value returns the last rule string received or emitted
func (e *Editor) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastKnown
}

// State returns a copy of the current state
func (e *Editor) State() recurrence.RuleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start returns the reference start date, if any
func (e *Editor) Start() mo.Option[time.Time] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.start
}

// SetStart changes the reference start date. The monthly ordinal weekday is
// dropped since it was derived from the old date, and a weekly selection of at
// most one day moves to the new date's weekday.
func (e *Editor) SetStart(start time.Time) {
	e.update(func(s *recurrence.RuleState) error {
		if old, ok := e.start.Get(); ok && old.Equal(start) {
			return nil
		}
		e.start = mo.Some(start)
		s.MonthlyWeekday = mo.None[recurrence.MonthlyWeekday]()
		if s.Frequency == recurrence.FrequencyWeekly && s.Weekdays.Len() <= 1 {
			s.Weekdays = recurrence.NewWeekdaySet(start.Weekday())
		}
		return nil
	})
}

// SetFirstWeekday changes the first day of the week used by WeekdayToggles
func (e *Editor) SetFirstWeekday(d time.Weekday) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.firstWeekday = d % 7
}

// SelectFrequency switches the repeat unit and resets the fields that have no
// meaning for it. Selecting the current frequency does nothing.
func (e *Editor) SelectFrequency(freq recurrence.Frequency) error {
	if freq != recurrence.FrequencyNone && !freq.Recurring() {
		return fmt.Errorf("%w: %s", recurrence.ErrUnknownFrequency, freq)
	}

	return e.update(func(s *recurrence.RuleState) error {
		if s.Frequency == freq {
			return nil
		}
		s.Frequency = freq
		s.MonthlyWeekday = mo.None[recurrence.MonthlyWeekday]()

		switch freq {
		case recurrence.FrequencyNone:
			s.Interval = 1
			s.End = recurrence.EndNever
			s.Count = mo.None[int]()
			s.Until = mo.None[time.Time]()
		case recurrence.FrequencyYearly:
			s.Interval = 1
		}

		if freq != recurrence.FrequencyWeekly {
			s.Weekdays = 0
		} else if start, ok := e.start.Get(); ok && s.Weekdays.Empty() {
			s.Weekdays = recurrence.NewWeekdaySet(start.Weekday())
		}
		return nil
	})
}

// SetInterval sets "every n units". Values below 1 are rejected.
func (e *Editor) SetInterval(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", recurrence.ErrInvalidInterval, n)
	}
	return e.update(func(s *recurrence.RuleState) error {
		s.Interval = n
		return nil
	})
}

// ToggleWeekday adds or removes d from the weekly selection
func (e *Editor) ToggleWeekday(d time.Weekday, on bool) {
	e.update(func(s *recurrence.RuleState) error {
		if on {
			s.Weekdays = s.Weekdays.Add(d)
		} else {
			s.Weekdays = s.Weekdays.Remove(d)
		}
		return nil
	})
}

// SelectMonthly picks the monthly pattern: MonthlyByDay or an ordinal weekday
// token such as "+4TU".
func (e *Editor) SelectMonthly(value string) error {
	if strings.EqualFold(strings.TrimSpace(value), MonthlyByDay) {
		return e.update(func(s *recurrence.RuleState) error {
			s.MonthlyWeekday = mo.None[recurrence.MonthlyWeekday]()
			return nil
		})
	}

	m, err := recurrence.ParseMonthlyWeekday(value)
	if err != nil {
		return err
	}
	return e.update(func(s *recurrence.RuleState) error {
		s.MonthlyWeekday = mo.Some(m)
		return nil
	})
}

// SelectEnd switches the end condition. Count and until are seeded with
// defaults for the current frequency; selecting the current mode does nothing.
func (e *Editor) SelectEnd(mode recurrence.EndMode) error {
	switch mode {
	case recurrence.EndNever, recurrence.EndAfterCount, recurrence.EndUntilDate:
	default:
		return fmt.Errorf("%w: %s", recurrence.ErrUnknownEndMode, mode)
	}

	return e.update(func(s *recurrence.RuleState) error {
		if s.End == mode {
			return nil
		}
		s.End = mode
		s.Count = mo.None[int]()
		s.Until = mo.None[time.Time]()

		switch mode {
		case recurrence.EndAfterCount:
			s.Count = mo.Some(recurrence.DefaultCount(s.Frequency))
		case recurrence.EndUntilDate:
			s.Until = mo.Some(recurrence.DefaultUntil(e.clock(), s.Frequency))
		}
		return nil
	})
}

// SetCount makes the rule end after n occurrences
func (e *Editor) SetCount(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", recurrence.ErrInvalidCount, n)
	}
	return e.update(func(s *recurrence.RuleState) error {
		s.End = recurrence.EndAfterCount
		s.Count = mo.Some(n)
		s.Until = mo.None[time.Time]()
		return nil
	})
}

// SetUntil makes the rule end on until
func (e *Editor) SetUntil(until time.Time) {
	e.update(func(s *recurrence.RuleState) error {
		s.End = recurrence.EndUntilDate
		s.Until = mo.Some(until.UTC())
		s.Count = mo.None[int]()
		return nil
	})
}

// SetUntilDate is SetUntil for a YYYY-MM-DD date, taken as UTC midnight
func (e *Editor) SetUntilDate(value string) error {
	until, err := recurrence.ParseDate(value)
	if err != nil {
		return err
	}
	e.SetUntil(until)
	return nil
}

// UntilDate returns the until date as YYYY-MM-DD, or "" when the rule does not
// end on a date.
func (e *Editor) UntilDate() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if until, ok := e.state.Until.Get(); ok && e.state.End == recurrence.EndUntilDate {
		return recurrence.FormatDate(until)
	}
	return ""
}

// update applies mutate and notifies listeners when the encoded rule differs
// from the last known one. Edits that leave the frequency undefined are
// discarded.
func (e *Editor) update(mutate func(s *recurrence.RuleState) error) error {
	e.mu.Lock()
	before := e.state
	if err := mutate(&e.state); err != nil {
		e.mu.Unlock()
		return err
	}
	if before.Frequency == recurrence.FrequencyUndefined && e.state.Frequency == recurrence.FrequencyUndefined {
		e.state = before
		kept := e.lastKnown
		e.mu.Unlock()
		e.logger.Debug("ignoring edit of unsupported recurrence rule", "rule", kept)
		return nil
	}

	rule := recurrence.Encode(e.state)
	if rule == e.lastKnown {
		e.mu.Unlock()
		return nil
	}
	e.lastKnown = rule
	listeners := append([]func(string){}, e.listeners...)
	e.mu.Unlock()

	e.logger.Debug("recurrence rule changed", "rule", rule)
	for _, fn := range listeners {
		fn(rule)
	}
	return nil
}
