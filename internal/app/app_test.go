package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/rruledit/internal/config"
	"github.com/cyp0633/rruledit/recurrence"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Runtime {
	return config.Runtime{
		FirstWeekday: time.Monday,
		Format:       config.FormatJSON,
		LogLevel:     slog.LevelWarn,
		Count:        5,
	}
}

func run(t *testing.T, cfg config.Runtime, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), args, cfg, Streams{
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	return stdout.String(), stderr.String(), err
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    command
		wantErr string
	}{
		{name: "decode", args: []string{"decode", "FREQ=DAILY"}, want: command{name: "decode", arg: "FREQ=DAILY"}},
		{name: "encode", args: []string{"encode"}, want: command{name: "encode"}},
		{name: "edit with actions", args: []string{"edit", "", "freq=daily", "count=2"},
			want: command{name: "edit", arg: "", actions: []string{"freq=daily", "count=2"}}},
		{name: "ics without actions", args: []string{"ics", "event.ics"}, want: command{name: "ics", arg: "event.ics", actions: []string{}}},
		{name: "no command", args: nil, wantErr: "usage"},
		{name: "unknown command", args: []string{"explode"}, wantErr: "usage"},
		{name: "missing rule", args: []string{"preview"}, wantErr: "rruledit preview <rule>"},
		{name: "missing date", args: []string{"occurrences"}, wantErr: "rruledit occurrences <date>"},
		{name: "encode extra", args: []string{"encode", "FREQ=DAILY"}, wantErr: "unexpected argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_DecodeJSON(t *testing.T) {
	rule := "FREQ=WEEKLY;INTERVAL=2;BYDAY=TU,MO;COUNT=4"
	out, _, err := run(t, testConfig(), "", "decode", rule)
	require.NoError(t, err)

	var state recurrence.RuleState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, recurrence.Decode(rule), state)
	assert.Contains(t, out, `"weekdays": [`)
}

func TestRun_DecodeXCal(t *testing.T) {
	cfg := testConfig()
	cfg.Format = config.FormatXCal

	out, _, err := run(t, cfg, "", "decode", "FREQ=MONTHLY;BYDAY=-1TU")
	require.NoError(t, err)
	assert.Contains(t, out, "<freq>MONTHLY</freq>")
	assert.Contains(t, out, "<byday>-1TU</byday>")
}

func TestRun_DecodeUnsupported(t *testing.T) {
	out, logs, err := run(t, testConfig(), "", "decode", "FREQ=HOURLY")
	require.NoError(t, err)
	assert.Contains(t, out, `"frequency": "undefined"`)
	assert.Contains(t, logs, "rule cannot be edited")
}

func TestRun_Encode(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		stdin := `{"frequency":"weekly","weekdays":["WE","MO"],"end":"after","count":3}`
		out, _, err := run(t, testConfig(), stdin, "encode")
		require.NoError(t, err)
		assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=3\n", out)
	})

	t.Run("xcal", func(t *testing.T) {
		cfg := testConfig()
		cfg.Format = config.FormatXCal
		stdin := `<recur xmlns="urn:ietf:params:xml:ns:icalendar-2.0"><freq>DAILY</freq><until>2025-11-27</until></recur>`
		out, _, err := run(t, cfg, stdin, "encode")
		require.NoError(t, err)
		assert.Equal(t, "FREQ=DAILY;UNTIL=20251127T000000Z\n", out)
	})

	t.Run("invalid state", func(t *testing.T) {
		_, _, err := run(t, testConfig(), `{"frequency":"daily","end":"after"}`, "encode")
		assert.ErrorIs(t, err, recurrence.ErrInvalidState)
	})

	t.Run("not json", func(t *testing.T) {
		_, _, err := run(t, testConfig(), `FREQ=DAILY`, "encode")
		assert.ErrorContains(t, err, "failed to parse rule state")
	})
}

func TestRun_Occurrences(t *testing.T) {
	out, _, err := run(t, testConfig(), "", "occurrences", "2022-10-25")
	require.NoError(t, err)
	assert.Equal(t, "+4TU\n-1TU\n", out)

	_, _, err = run(t, testConfig(), "", "occurrences", "yesterday")
	assert.ErrorIs(t, err, recurrence.ErrInvalidDate)
}

func TestRun_Preview(t *testing.T) {
	cfg := testConfig()
	cfg.Start = mo.Some(time.Date(2022, 10, 25, 0, 0, 0, 0, time.UTC))
	cfg.Count = 3

	out, _, err := run(t, cfg, "", "preview", "FREQ=WEEKLY;BYDAY=TU,TH")
	require.NoError(t, err)
	assert.Equal(t, "2022-10-25T00:00:00Z\n2022-10-27T00:00:00Z\n2022-11-01T00:00:00Z\n", out)

	_, _, err = run(t, cfg, "", "preview", "FREQ=HOURLY")
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)
}

func TestRun_Edit(t *testing.T) {
	cfg := testConfig()
	cfg.Start = mo.Some(time.Date(2022, 10, 25, 0, 0, 0, 0, time.UTC))

	out, _, err := run(t, cfg, "", "edit", "FREQ=WEEKLY;BYDAY=MO",
		"toggle=WE",
		"toggle=MO",
		"interval=2",
		"count=3",
		"freq=monthly",
		"monthly=-1TU",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"FREQ=WEEKLY;BYDAY=MO,WE",
		"FREQ=WEEKLY;BYDAY=WE",
		"FREQ=WEEKLY;INTERVAL=2;BYDAY=WE",
		"FREQ=WEEKLY;INTERVAL=2;BYDAY=WE;COUNT=3",
		"FREQ=MONTHLY;INTERVAL=2;COUNT=3",
		"FREQ=MONTHLY;INTERVAL=2;BYDAY=-1TU;COUNT=3",
	}, strings.Split(strings.TrimSpace(out), "\n"))
}

func TestRun_EditNoChangeIsSilent(t *testing.T) {
	out, _, err := run(t, testConfig(), "", "edit", "FREQ=DAILY", "freq=daily", "monthly=bymonthday")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_EditErrors(t *testing.T) {
	tests := []struct {
		action string
		err    error
	}{
		{action: "interval=0", err: recurrence.ErrInvalidInterval},
		{action: "interval=often", err: recurrence.ErrInvalidInterval},
		{action: "count=-1", err: recurrence.ErrInvalidCount},
		{action: "freq=hourly", err: recurrence.ErrUnknownFrequency},
		{action: "end=someday", err: recurrence.ErrUnknownEndMode},
		{action: "toggle=XX", err: recurrence.ErrUnknownWeekday},
		{action: "until=27.11.2025", err: recurrence.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			_, _, err := run(t, testConfig(), "", "edit", "FREQ=DAILY", tt.action)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, _, err := run(t, testConfig(), "", "edit", "FREQ=DAILY", "freq")
	assert.ErrorContains(t, err, "expected key=value")
	_, _, err = run(t, testConfig(), "", "edit", "FREQ=DAILY", "colour=blue")
	assert.ErrorContains(t, err, "unknown action")
}

func writeICS(t *testing.T, rule string) string {
	t.Helper()
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:standup@example.com",
		"DTSTAMP:20221001T000000Z",
		"DTSTART:20221025T090000Z",
		"SUMMARY:Standup",
	}
	if rule != "" {
		lines = append(lines, "RRULE:"+rule)
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR", "")

	path := filepath.Join(t.TempDir(), "event.ics")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\r\n")), 0o600))
	return path
}

func TestRun_ICS(t *testing.T) {
	path := writeICS(t, "FREQ=WEEKLY;BYDAY=TU")

	out, _, err := run(t, testConfig(), "", "ics", path, "freq=monthly", "monthly=-1TU")
	require.NoError(t, err)
	assert.Contains(t, out, "RRULE:FREQ=MONTHLY;BYDAY=-1TU")
	assert.Contains(t, out, "UID:standup@example.com")
	assert.NotContains(t, out, "FREQ=WEEKLY")
}

func TestRun_ICSRemoveRule(t *testing.T) {
	path := writeICS(t, "FREQ=DAILY;COUNT=5")

	out, _, err := run(t, testConfig(), "", "ics", path, "freq=none")
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VEVENT")
	assert.NotContains(t, out, "RRULE")
}

func TestRun_ICSDiff(t *testing.T) {
	path := writeICS(t, "FREQ=WEEKLY;BYDAY=TU")
	cfg := testConfig()
	cfg.Diff = true

	out, _, err := run(t, cfg, "", "ics", path, "toggle=TH")
	require.NoError(t, err)
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;BYDAY=TU,TH")
	assert.Contains(t, out, "PRODID:-//test//EN")
	assert.False(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
}

func TestDiffLines(t *testing.T) {
	assert.Empty(t, diffLines("A\r\nB\r\n", "A\nB"))
	assert.Empty(t, diffLines("", ""))

	diff := diffLines("A\nB\n", "A\nC\n")
	assert.Contains(t, diff, `"B"`)
	assert.Contains(t, diff, `"C"`)
}

func TestRun_ICSErrors(t *testing.T) {
	_, _, err := run(t, testConfig(), "", "ics", filepath.Join(t.TempDir(), "missing.ics"))
	assert.ErrorContains(t, err, "failed to read")

	_, _, err = run(t, testConfig(), "", "ics", writeICS(t, ""), "interval=0")
	assert.ErrorIs(t, err, recurrence.ErrInvalidInterval)
}
