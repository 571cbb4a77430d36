package recurrence

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// RuleSource is the recurrence-related data an editor needs from a component
type RuleSource struct {
	Rule     string    // RRULE value without the "RRULE:" name
	Start    time.Time // DTSTART, zero when absent or unreadable
	HasStart bool
}

// ExtractRuleFromComponent reads RRULE and DTSTART from an iCal component
func ExtractRuleFromComponent(comp *ical.Component) RuleSource {
	info := RuleSource{}
	if comp == nil {
		return info
	}

	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil {
		info.Rule = strings.TrimSpace(rruleProp.Value)
	}

	if startProp := comp.Props.Get(ical.PropDateTimeStart); startProp != nil {
		if start, err := startProp.DateTime(time.UTC); err == nil {
			info.Start = start
			info.HasStart = true
		}
	}

	return info
}

// ApplyRuleToComponent writes rule into the component's RRULE property. An
// empty rule removes the property.
func ApplyRuleToComponent(comp *ical.Component, rule string) {
	if comp == nil {
		return
	}
	if strings.TrimSpace(rule) == "" {
		comp.Props.Del(ical.PropRecurrenceRule)
		return
	}

	prop := ical.NewProp(ical.PropRecurrenceRule)
	prop.Value = rule
	comp.Props.Set(prop)
}

// IsAllDay reports whether a DTSTART value is a DATE (no time part)
func IsAllDay(comp *ical.Component) bool {
	if comp == nil {
		return false
	}
	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return false
	}
	if valueParam := prop.Params.Get(ical.ParamValue); strings.EqualFold(valueParam, string(ical.ValueDate)) {
		return true
	}
	return len(strings.TrimSpace(prop.Value)) == len("20060102")
}
