package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// DecodeOptions carries the context of a decode call.
type DecodeOptions struct {
	// FirstWeekday only affects how weekday toggles are laid out; it never
	// changes the decoded state.
	FirstWeekday mo.Option[time.Weekday]
}

// Decode converts a rule string into a RuleState.
//
// The empty string decodes to DefaultRuleState. Text the grammar engine
// rejects, or that uses a frequency the editor cannot show, decodes to a state
// with FrequencyUndefined and defaults everywhere else; Decode never fails.
func Decode(text string) RuleState {
	state, _ := decode(text)
	return state
}

// DecodeWith is Decode with an explicit context. The returned error explains
// why the state is FrequencyUndefined and is nil otherwise.
func DecodeWith(text string, _ DecodeOptions) (RuleState, error) {
	return decode(text)
}

func decode(text string) (RuleState, error) {
	state := DefaultRuleState()
	if strings.TrimSpace(text) == "" {
		return state, nil
	}

	opt, err := ParseRule(text)
	if err != nil {
		state.Frequency = FrequencyUndefined
		return state, err
	}

	freq, err := convertFrequency(opt.Freq)
	if err != nil {
		state.Frequency = FrequencyUndefined
		return state, err
	}
	state.Frequency = freq

	if opt.Interval > 0 {
		state.Interval = opt.Interval
	}

	switch freq {
	case FrequencyWeekly:
		for _, wday := range opt.Byweekday {
			if wday.N() != 0 {
				continue
			}
			state.Weekdays = state.Weekdays.Add(fromEngineWeekday(wday))
		}
	case FrequencyMonthly:
		if len(opt.Byweekday) == 1 && opt.Byweekday[0].N() != 0 {
			wday := opt.Byweekday[0]
			state.MonthlyWeekday = mo.Some(MonthlyWeekday{
				Weekday: fromEngineWeekday(wday),
				Ordinal: wday.N(),
			})
		}
	}

	// UNTIL wins when a rule carries both
	if !opt.Until.IsZero() {
		state.End = EndUntilDate
		state.Until = mo.Some(opt.Until.UTC())
	} else if opt.Count > 0 {
		state.End = EndAfterCount
		state.Count = mo.Some(opt.Count)
	}

	return state, nil
}

// Encode converts a RuleState into its canonical rule string. The same state
// always yields the same string.
func Encode(state RuleState) string {
	opt, ok := toOption(state)
	if !ok {
		return ""
	}
	return FormatRule(opt)[len(contentLinePrefix):]
}

func toOption(state RuleState) (*rrule.ROption, bool) {
	freq, ok := convertRepeatFrequency(state.Frequency)
	if !ok {
		return nil, false
	}

	opt := &rrule.ROption{Freq: freq}
	if state.Interval > 1 {
		opt.Interval = state.Interval
	}

	switch state.Frequency {
	case FrequencyWeekly:
		for _, d := range state.Weekdays.Days() {
			opt.Byweekday = append(opt.Byweekday, toEngineWeekday(d))
		}
	case FrequencyMonthly:
		if m, ok := state.MonthlyWeekday.Get(); ok {
			opt.Byweekday = []rrule.Weekday{m.engineWeekday()}
		}
	}

	switch state.End {
	case EndAfterCount:
		opt.Count = state.Count.OrEmpty()
	case EndUntilDate:
		opt.Until = state.Until.OrEmpty()
	}

	return opt, true
}

func convertFrequency(freq rrule.Frequency) (Frequency, error) {
	switch freq {
	case rrule.YEARLY:
		return FrequencyYearly, nil
	case rrule.MONTHLY:
		return FrequencyMonthly, nil
	case rrule.WEEKLY:
		return FrequencyWeekly, nil
	case rrule.DAILY:
		return FrequencyDaily, nil
	default:
		return FrequencyUndefined, fmt.Errorf("%w: %s", ErrUnsupportedFrequency, freq)
	}
}

func convertRepeatFrequency(freq Frequency) (rrule.Frequency, bool) {
	switch freq {
	case FrequencyYearly:
		return rrule.YEARLY, true
	case FrequencyMonthly:
		return rrule.MONTHLY, true
	case FrequencyWeekly:
		return rrule.WEEKLY, true
	case FrequencyDaily:
		return rrule.DAILY, true
	default:
		return 0, false
	}
}
