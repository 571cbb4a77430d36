package recurrence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func TestWeekdayCodes(t *testing.T) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		code := WeekdayCode(d)
		parsed, err := ParseWeekdayCode(code)
		require.NoError(t, err)
		assert.Equal(t, d, parsed)

		assert.Equal(t, code, toEngineWeekday(d).String())
		assert.Equal(t, d, fromEngineWeekday(toEngineWeekday(d)))
	}

	parsed, err := ParseWeekdayCode(" we ")
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, parsed)

	_, err = ParseWeekdayCode("XX")
	assert.ErrorIs(t, err, ErrUnknownWeekday)
}

func TestFromEngineWeekday_IgnoresOrdinal(t *testing.T) {
	assert.Equal(t, time.Tuesday, fromEngineWeekday(rrule.TU.Nth(-1)))
	assert.Equal(t, time.Sunday, fromEngineWeekday(rrule.SU.Nth(2)))
}

func TestWeekdayOrder(t *testing.T) {
	assert.Equal(t, []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
	}, WeekdayOrder(time.Sunday))
	assert.Equal(t, []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
	}, WeekdayOrder(time.Monday))
	assert.Equal(t, time.Saturday, WeekdayOrder(time.Saturday)[0])
	assert.Len(t, WeekdayOrder(time.Saturday), 7)
}

func TestWeekdaySet(t *testing.T) {
	var s WeekdaySet
	assert.True(t, s.Empty())
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Days())

	s = s.Add(time.Tuesday).Add(time.Monday).Add(time.Tuesday)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(time.Monday))
	assert.False(t, s.Has(time.Sunday))
	assert.Equal(t, []string{"MO", "TU"}, s.Codes())
	assert.Equal(t, "MO,TU", s.String())

	removed := s.Remove(time.Monday)
	assert.Equal(t, []time.Weekday{time.Tuesday}, removed.Days())
	// value semantics
	assert.True(t, s.Has(time.Monday))

	assert.Equal(t, removed, removed.Remove(time.Friday))
	assert.Equal(t, NewWeekdaySet(time.Saturday, time.Sunday), NewWeekdaySet(time.Sunday, time.Saturday))
}

func TestWeekdaySet_JSON(t *testing.T) {
	data, err := json.Marshal(NewWeekdaySet(time.Friday, time.Sunday))
	require.NoError(t, err)
	assert.JSONEq(t, `["SU","FR"]`, string(data))

	data, err = json.Marshal(WeekdaySet(0))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	var s WeekdaySet
	require.NoError(t, json.Unmarshal([]byte(`["tu","MO"]`), &s))
	assert.Equal(t, NewWeekdaySet(time.Monday, time.Tuesday), s)

	assert.ErrorIs(t, json.Unmarshal([]byte(`["MO","XX"]`), &s), ErrUnknownWeekday)
}

func TestParseMonthlyWeekday(t *testing.T) {
	tests := []struct {
		token    string
		expected MonthlyWeekday
		wantErr  bool
	}{
		{token: "+4TU", expected: MonthlyWeekday{Weekday: time.Tuesday, Ordinal: 4}},
		{token: "2WE", expected: MonthlyWeekday{Weekday: time.Wednesday, Ordinal: 2}},
		{token: "-1mo", expected: MonthlyWeekday{Weekday: time.Monday, Ordinal: -1}},
		{token: "MO", wantErr: true},
		{token: "+0MO", wantErr: true},
		{token: "+6MO", wantErr: true},
		{token: "+1XX", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			m, err := ParseMonthlyWeekday(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownWeekday)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
		})
	}
}

func TestMonthlyWeekday_String(t *testing.T) {
	assert.Equal(t, "+4TU", MonthlyWeekday{Weekday: time.Tuesday, Ordinal: 4}.String())
	assert.Equal(t, "-1MO", MonthlyWeekday{Weekday: time.Monday, Ordinal: -1}.String())

	m := MonthlyWeekday{Weekday: time.Sunday, Ordinal: 3}
	w := m.engineWeekday()
	assert.Equal(t, "+3SU", w.String())
}

func TestFrequencyText(t *testing.T) {
	for _, f := range []Frequency{FrequencyNone, FrequencyYearly, FrequencyMonthly, FrequencyWeekly, FrequencyDaily} {
		parsed, err := ParseFrequency(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	_, err := ParseFrequency("undefined")
	assert.ErrorIs(t, err, ErrUnknownFrequency)
	_, err = ParseFrequency("hourly")
	assert.ErrorIs(t, err, ErrUnknownFrequency)

	parsed, err := ParseFrequency(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, FrequencyWeekly, parsed)

	var f Frequency
	require.NoError(t, f.UnmarshalText([]byte("undefined")))
	assert.Equal(t, FrequencyUndefined, f)

	assert.True(t, FrequencyDaily.Recurring())
	assert.False(t, FrequencyNone.Recurring())
	assert.False(t, FrequencyUndefined.Recurring())
}

func TestEndModeText(t *testing.T) {
	for _, name := range []string{"never", "after", "on"} {
		m, err := ParseEndMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	_, err := ParseEndMode("sometimes")
	assert.ErrorIs(t, err, ErrUnknownEndMode)
}
