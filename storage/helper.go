package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/rruledit/recurrence"
	"github.com/emersion/go-ical"
)

const productID = "-//rruledit//Recurrence Rule Editor//EN"

// EventToICS encodes event as a single-event VCALENDAR. A missing DTSTAMP is
// set to the current time.
func EventToICS(event ical.Event) (string, error) {
	if event.Props.Get(ical.PropDateTimeStamp) == nil {
		event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	}

	var sb strings.Builder
	if err := ical.NewEncoder(&sb).Encode(newCalendar(event.Component)); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return sb.String(), nil
}

func newCalendar(children ...*ical.Component) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, children...)
	return cal
}

// ICSToEvent decodes a calendar and returns its first VEVENT. Malformed input
// is reported as ErrInvalidInput.
func ICSToEvent(ics string) (*ical.Event, error) {
	cal, err := ical.NewDecoder(strings.NewReader(ics)).Decode()
	if err != nil {
		return nil, &Error{Type: ErrInvalidInput, Message: "failed to decode calendar", Err: err}
	}

	for _, child := range cal.Children {
		if child.Name == ical.CompEvent {
			return &ical.Event{Component: child}, nil
		}
	}
	return nil, &Error{Type: ErrInvalidInput, Message: "no events found in calendar"}
}

// NewRecurringEvent builds a VEVENT starting at start and repeating by rule.
// An empty rule yields a single event.
func NewRecurringEvent(uid, summary string, start time.Time, rule string) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	recurrence.ApplyRuleToComponent(event.Component, rule)
	return event
}
