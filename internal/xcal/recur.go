// Package xcal renders recurrence rules in the xCal (RFC 6321) <recur> form.
package xcal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/rruledit/recurrence"
	"github.com/teambition/rrule-go"
)

// Namespace is the iCalendar XML namespace
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

const (
	TagRecur    = "recur"
	TagFreq     = "freq"
	TagUntil    = "until"
	TagCount    = "count"
	TagInterval = "interval"
	TagByDay    = "byday"
)

const (
	dateTimeLayout = "2006-01-02T15:04:05Z"
	dateLayout     = "2006-01-02"
)

// ToElement renders state as a <recur> element. It returns nil for states that
// do not repeat.
func ToElement(state recurrence.RuleState) *etree.Element {
	opt, err := recurrence.ParseRule(recurrence.Encode(state))
	if err != nil {
		return nil
	}

	recur := etree.NewElement(TagRecur)
	recur.CreateElement(TagFreq).SetText(opt.Freq.String())
	// RFC 6321 puts the end condition before the interval
	if !opt.Until.IsZero() {
		recur.CreateElement(TagUntil).SetText(opt.Until.UTC().Format(dateTimeLayout))
	}
	if opt.Count > 0 {
		recur.CreateElement(TagCount).SetText(strconv.Itoa(opt.Count))
	}
	if opt.Interval > 1 {
		recur.CreateElement(TagInterval).SetText(strconv.Itoa(opt.Interval))
	}
	for _, wday := range opt.Byweekday {
		recur.CreateElement(TagByDay).SetText(wday.String())
	}
	return recur
}

// ToXML wraps ToElement in a document whose root carries the namespace. A state
// that does not repeat yields an empty <recur/>.
func ToXML(state recurrence.RuleState) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	recur := ToElement(state)
	if recur == nil {
		recur = etree.NewElement(TagRecur)
	}
	recur.CreateAttr("xmlns", Namespace)
	doc.AddChild(recur)
	return doc
}

// Marshal renders state as an indented xCal document
func Marshal(state recurrence.RuleState) (string, error) {
	doc := ToXML(state)
	doc.Indent(2)
	return doc.WriteToString()
}

// FromElement decodes a <recur> element. Like recurrence.DecodeWith, a rule the
// editor cannot show yields FrequencyUndefined together with the reason.
func FromElement(elem *etree.Element) (recurrence.RuleState, error) {
	if elem == nil || elem.Tag != TagRecur {
		return recurrence.RuleState{Frequency: recurrence.FrequencyUndefined, Interval: 1},
			fmt.Errorf("%w: expected <%s> element", recurrence.ErrInvalidRule, TagRecur)
	}

	rule, err := ruleText(elem)
	if err != nil {
		return recurrence.RuleState{Frequency: recurrence.FrequencyUndefined, Interval: 1}, err
	}
	return recurrence.DecodeWith(rule, recurrence.DecodeOptions{})
}

// Unmarshal decodes an xCal document whose root is <recur>
func Unmarshal(xmlStr string) (recurrence.RuleState, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return recurrence.RuleState{Frequency: recurrence.FrequencyUndefined, Interval: 1},
			fmt.Errorf("failed to parse xCal: %w", err)
	}
	return FromElement(doc.Root())
}

// ruleText turns the children of <recur> into a rule string, FREQ first
func ruleText(recur *etree.Element) (string, error) {
	var freq string
	var fields []string
	var days []string

	for _, child := range recur.ChildElements() {
		value := strings.TrimSpace(child.Text())
		switch child.Tag {
		case TagFreq:
			freq = "FREQ=" + value
		case TagUntil:
			until, err := parseUntil(value)
			if err != nil {
				return "", err
			}
			fields = append(fields, "UNTIL="+until)
		case TagByDay:
			days = append(days, value)
		default:
			fields = append(fields, strings.ToUpper(child.Tag)+"="+value)
		}
	}

	if freq == "" {
		return "", fmt.Errorf("%w: missing <%s>", recurrence.ErrInvalidRule, TagFreq)
	}
	if len(days) > 0 {
		fields = append(fields, "BYDAY="+strings.Join(days, ","))
	}
	return strings.Join(append([]string{freq}, fields...), ";"), nil
}

func parseUntil(value string) (string, error) {
	if t, err := time.Parse(dateTimeLayout, value); err == nil {
		return t.Format(rrule.DateTimeFormat), nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.Format(rrule.DateFormat), nil
	}
	return "", fmt.Errorf("%w: until %q", recurrence.ErrInvalidRule, value)
}
