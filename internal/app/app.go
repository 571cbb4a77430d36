package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/rruledit/editor"
	"github.com/cyp0633/rruledit/internal/config"
	"github.com/cyp0633/rruledit/internal/xcal"
	"github.com/cyp0633/rruledit/recurrence"
	"github.com/cyp0633/rruledit/storage"
	"github.com/cyp0633/rruledit/storage/memory"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// localCalendar holds the object loaded by the ics command
const localCalendar = "local"

const usage = "usage: rruledit <decode RULE|encode|occurrences DATE|preview RULE|edit RULE ACTION...|ics FILE ACTION...>"

// Streams are the standard streams of a run
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type command struct {
	name    string
	arg     string
	actions []string
}

func Run(ctx context.Context, args []string, cfg config.Runtime, streams Streams) error {
	cmd, err := parseArgs(args)
	if err != nil {
		return err
	}

	stderr := streams.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	switch cmd.name {
	case "decode":
		return decodeRule(cmd.arg, cfg, logger, streams.Stdout)
	case "encode":
		return encodeRule(streams.Stdin, cfg, streams.Stdout)
	case "occurrences":
		return listOccurrences(cmd.arg, streams.Stdout)
	case "preview":
		return preview(cmd.arg, cfg, logger, streams.Stdout)
	case "edit":
		return editRule(cmd.arg, cmd.actions, cfg, logger, streams.Stdout)
	case "ics":
		return editICS(ctx, cmd.arg, cmd.actions, cfg, logger, streams.Stdout)
	default:
		return fmt.Errorf("unsupported command %q", cmd.name)
	}
}

func parseArgs(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New(usage)
	}

	name := strings.TrimSpace(args[0])
	switch name {
	case "encode":
		if len(args) > 1 {
			return command{}, fmt.Errorf("unexpected argument %q", args[1])
		}
		return command{name: name}, nil
	case "decode", "occurrences", "preview":
		if len(args) != 2 {
			return command{}, fmt.Errorf("usage: rruledit %s <%s>", name, argName(name))
		}
		return command{name: name, arg: args[1]}, nil
	case "edit", "ics":
		if len(args) < 2 {
			return command{}, fmt.Errorf("usage: rruledit %s <%s> [action...]", name, argName(name))
		}
		return command{name: name, arg: args[1], actions: args[2:]}, nil
	default:
		return command{}, errors.New(usage)
	}
}

func argName(cmd string) string {
	switch cmd {
	case "occurrences":
		return "date"
	case "ics":
		return "file"
	default:
		return "rule"
	}
}

func decodeRule(rule string, cfg config.Runtime, logger *slog.Logger, stdout io.Writer) error {
	state, err := recurrence.DecodeWith(rule, recurrence.DecodeOptions{
		FirstWeekday: mo.Some(cfg.FirstWeekday),
	})
	if err != nil {
		logger.Warn("rule cannot be edited",
			"rule", rule,
			"error", err)
	}

	if cfg.Format == config.FormatXCal {
		out, err := xcal.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to render xCal: %w", err)
		}
		_, err = fmt.Fprintln(stdout, out)
		return err
	}
	return writeJSON(stdout, state)
}

func encodeRule(stdin io.Reader, cfg config.Runtime, stdout io.Writer) error {
	if stdin == nil {
		return errors.New("encode reads a rule state from stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	var state recurrence.RuleState
	if cfg.Format == config.FormatXCal {
		state, err = xcal.Unmarshal(string(data))
		if err != nil {
			return err
		}
	} else {
		state = recurrence.DefaultRuleState()
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("failed to parse rule state: %w", err)
		}
		if err := state.Validate(); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(stdout, recurrence.Encode(state))
	return err
}

func listOccurrences(value string, stdout io.Writer) error {
	date, err := recurrence.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	for _, occ := range recurrence.MonthlyOccurrences(date) {
		if _, err := fmt.Fprintln(stdout, occ.String()); err != nil {
			return err
		}
	}
	return nil
}

func preview(rule string, cfg config.Runtime, logger *slog.Logger, stdout io.Writer) error {
	engine := recurrence.NewEngine()
	defer engine.Close()

	e := newEditor(rule, cfg, logger, editor.WithEngine(engine))
	if e.State().Frequency == recurrence.FrequencyUndefined {
		return fmt.Errorf("%w: %q", recurrence.ErrInvalidRule, rule)
	}

	occurrences, err := e.Preview(cfg.Count)
	if err != nil {
		return err
	}
	for _, t := range occurrences {
		if _, err := fmt.Fprintln(stdout, t.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}

func editRule(rule string, actions []string, cfg config.Runtime, logger *slog.Logger, stdout io.Writer) error {
	var writeErr error
	e := newEditor(rule, cfg, logger, editor.WithOnChange(func(emitted string) {
		if writeErr == nil {
			_, writeErr = fmt.Fprintln(stdout, emitted)
		}
	}))

	if err := applyActions(e, actions); err != nil {
		return err
	}
	return writeErr
}

func editICS(ctx context.Context, path string, actions []string, cfg config.Runtime, logger *slog.Logger, stdout io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	event, err := storage.ICSToEvent(string(data))
	if err != nil {
		return err
	}

	uid, _ := event.Props.Text(ical.PropUID)
	store := memory.New(memory.WithLogger(logger))
	obj := &storage.Object{ID: uid, CalendarID: localCalendar, Event: event}
	if err := store.CreateObject(ctx, obj); err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}

	opts := []editor.Option{editor.WithLogger(logger), editor.WithFirstWeekday(cfg.FirstWeekday)}
	binding, err := editor.Bind(ctx, store, localCalendar, obj.ID, opts...)
	if err != nil {
		return err
	}

	if err := applyActions(binding.Editor(), actions); err != nil {
		return err
	}
	if err := binding.Err(); err != nil {
		return fmt.Errorf("failed to store recurrence rule: %w", err)
	}

	updated, err := binding.Object(ctx)
	if err != nil {
		return err
	}
	ics, err := storage.EventToICS(*updated.Event)
	if err != nil {
		return err
	}
	if cfg.Diff {
		ics = diffLines(string(data), ics)
	}
	_, err = io.WriteString(stdout, ics)
	return err
}

func newEditor(rule string, cfg config.Runtime, logger *slog.Logger, extra ...editor.Option) *editor.Editor {
	opts := []editor.Option{
		editor.WithLogger(logger),
		editor.WithFirstWeekday(cfg.FirstWeekday),
		editor.WithValue(rule),
	}
	if start, ok := cfg.Start.Get(); ok {
		opts = append(opts, editor.WithStart(start))
	}
	return editor.New(append(opts, extra...)...)
}

func applyActions(e *editor.Editor, actions []string) error {
	for _, action := range actions {
		if err := applyAction(e, action); err != nil {
			return fmt.Errorf("action %q: %w", action, err)
		}
	}
	return nil
}

// applyAction performs one key=value edit, e.g. "freq=weekly" or "toggle=MO"
func applyAction(e *editor.Editor, action string) error {
	key, value, ok := strings.Cut(action, "=")
	if !ok {
		return errors.New("expected key=value")
	}
	value = strings.TrimSpace(value)

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "freq":
		freq, err := recurrence.ParseFrequency(value)
		if err != nil {
			return err
		}
		return e.SelectFrequency(freq)
	case "interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %q", recurrence.ErrInvalidInterval, value)
		}
		return e.SetInterval(n)
	case "toggle":
		d, err := recurrence.ParseWeekdayCode(value)
		if err != nil {
			return err
		}
		e.ToggleWeekday(d, !e.State().Weekdays.Has(d))
		return nil
	case "monthly":
		return e.SelectMonthly(value)
	case "end":
		mode, err := recurrence.ParseEndMode(value)
		if err != nil {
			return err
		}
		return e.SelectEnd(mode)
	case "count":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %q", recurrence.ErrInvalidCount, value)
		}
		return e.SetCount(n)
	case "until":
		return e.SetUntilDate(value)
	case "start":
		start, err := recurrence.ParseDate(value)
		if err != nil {
			return err
		}
		e.SetStart(start)
		return nil
	default:
		return fmt.Errorf("unknown action %q", key)
	}
}

func writeJSON(stdout io.Writer, v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
