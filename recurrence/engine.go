package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// contentLinePrefix is the property name the grammar engine puts in front of
// every serialized rule.
const contentLinePrefix = "RRULE:"

var (
	// ErrInvalidRule is returned when the grammar engine rejects a rule string
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrUnsupportedFrequency is returned for frequencies the editor cannot represent
	ErrUnsupportedFrequency = errors.New("unsupported frequency")
)

// ParseRule parses a content line value (with or without the "RRULE:" name)
// into engine options. Names and values are case-insensitive. Negative
// INTERVAL or COUNT values are rejected.
func ParseRule(text string) (*rrule.ROption, error) {
	opt, err := rrule.StrToROption(upperRuleLines(strings.TrimSpace(text)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if opt.Interval < 0 {
		return nil, fmt.Errorf("%w: negative INTERVAL %d", ErrInvalidRule, opt.Interval)
	}
	if opt.Count < 0 {
		return nil, fmt.Errorf("%w: negative COUNT %d", ErrInvalidRule, opt.Count)
	}
	return opt, nil
}

// upperRuleLines upper-cases every line except a DTSTART line, whose TZID
// names a case-sensitive location.
func upperRuleLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(strings.ToUpper(line), "DTSTART") {
			lines[i] = strings.ToUpper(line)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatRule serializes the fields the editor manages into an "RRULE:" content
// line. Fields appear as FREQ, INTERVAL, BYDAY, COUNT, UNTIL; zero values are omitted.
func FormatRule(opt *rrule.ROption) string {
	fields := []string{"FREQ=" + opt.Freq.String()}
	if opt.Interval != 0 {
		fields = append(fields, fmt.Sprintf("INTERVAL=%d", opt.Interval))
	}
	if len(opt.Byweekday) > 0 {
		tokens := make([]string, len(opt.Byweekday))
		for i, wday := range opt.Byweekday {
			tokens[i] = wday.String()
		}
		fields = append(fields, "BYDAY="+strings.Join(tokens, ","))
	}
	if opt.Count != 0 {
		fields = append(fields, fmt.Sprintf("COUNT=%d", opt.Count))
	}
	if !opt.Until.IsZero() {
		fields = append(fields, "UNTIL="+opt.Until.UTC().Format(rrule.DateTimeFormat))
	}
	return contentLinePrefix + strings.Join(fields, ";")
}

// Engine expands rules into concrete occurrences for previews
type Engine struct {
	cache  *PreviewCache
	config EngineConfig
}

// NewEngine creates an engine using DefaultEngineConfig
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// Close releases the cached expansions, if any
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// CacheStats reports cache usage. Zero stats are returned when caching is off.
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// Next returns up to n occurrences of rule, anchored at dtstart, that start at
// or after from. At most MaxExpansionOccurrences candidates are examined.
func (e *Engine) Next(dtstart time.Time, rule string, from time.Time, n int) ([]time.Time, error) {
	if n <= 0 || strings.TrimSpace(rule) == "" {
		return nil, nil
	}
	if n > e.config.MaxExpansionOccurrences {
		n = e.config.MaxExpansionOccurrences
	}

	key := CacheKey{Operation: fmt.Sprintf("next:%d", n), Dtstart: dtstart, Rule: rule, RangeStart: from}
	if cached, ok := e.lookup(key); ok {
		return cached, nil
	}

	r, err := e.build(dtstart, rule)
	if err != nil {
		return nil, err
	}

	var result []time.Time
	next := r.Iterator()
	for examined := 0; len(result) < n && examined < e.config.MaxExpansionOccurrences; examined++ {
		occurrence, ok := next()
		if !ok {
			break
		}
		if occurrence.Before(from) {
			continue
		}
		result = append(result, occurrence)
	}

	e.store(key, result)
	return result, nil
}

// Between returns the occurrences of rule, anchored at dtstart, inside
// [rangeStart, rangeEnd]. Ranges longer than LargeRangeThreshold are cut to
// LargeRangeLimit.
func (e *Engine) Between(dtstart time.Time, rule string, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	if strings.TrimSpace(rule) == "" {
		return nil, nil
	}
	if rangeEnd.Sub(rangeStart) > e.config.LargeRangeThreshold {
		rangeEnd = rangeStart.Add(e.config.LargeRangeLimit)
	}

	key := CacheKey{Operation: "between", Dtstart: dtstart, Rule: rule, RangeStart: rangeStart, RangeEnd: rangeEnd}
	if cached, ok := e.lookup(key); ok {
		return cached, nil
	}

	r, err := e.build(dtstart, rule)
	if err != nil {
		return nil, err
	}
	// inclusive on both ends
	result := r.Between(rangeStart, rangeEnd, true)

	e.store(key, result)
	return result, nil
}

func (e *Engine) build(dtstart time.Time, rule string) (*rrule.RRule, error) {
	opt, err := ParseRule(rule)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtstart
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	return r, nil
}

func (e *Engine) lookup(key CacheKey) ([]time.Time, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(key)
}

func (e *Engine) store(key CacheKey, result []time.Time) {
	if e.cache != nil {
		e.cache.Set(key, result)
	}
}
