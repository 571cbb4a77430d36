package editor

import (
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/rruledit/recurrence"
	"github.com/samber/mo"
)

// Option configures an Editor
type Option func(*Editor)

// WithLogger sets the logger. Editors log nothing by default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFirstWeekday sets the first day of the week used to lay out weekday toggles
func WithFirstWeekday(d time.Weekday) Option {
	return func(e *Editor) {
		e.firstWeekday = d % 7
	}
}

// WithStart sets the reference start date of the event being edited
func WithStart(start time.Time) Option {
	return func(e *Editor) {
		e.start = mo.Some(start)
	}
}

// WithValue sets the initial rule string. It is decoded without a notification.
func WithValue(rule string) Option {
	return func(e *Editor) {
		e.initial = rule
	}
}

// WithOnChange registers a listener for emitted rule strings. It may be given
// more than once.
func WithOnChange(fn func(rule string)) Option {
	return func(e *Editor) {
		if fn != nil {
			e.listeners = append(e.listeners, fn)
		}
	}
}

// WithClock replaces time.Now, which seeds default until dates
func WithClock(clock func() time.Time) Option {
	return func(e *Editor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithEngine sets the engine used by Preview
func WithEngine(engine *recurrence.Engine) Option {
	return func(e *Editor) {
		if engine != nil {
			e.engine = engine
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
