package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/rruledit/recurrence"
	"github.com/samber/mo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

const (
	FormatJSON = "json"
	FormatXCal = "xcal"

	defaultPreviewCount = 5
	maxPreviewCount     = 500
)

// Runtime is the resolved command line configuration
type Runtime struct {
	ConfigFile string

	FirstWeekday time.Weekday
	Start        mo.Option[time.Time]
	Format       string
	LogLevel     slog.Level
	Count        int
	// Diff makes the ics command print a line diff instead of the whole calendar
	Diff bool
}

// NewFlagSet declares the flags Load understands
func NewFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.String("config", "", "config file (yaml, toml, json or ini)")
	flags.String("first-day", "MO", "first day of the week for weekday toggles")
	flags.String("start", "", "event start date (YYYY-MM-DD)")
	flags.String("format", FormatJSON, "decode/encode format: json or xcal")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.Int("count", defaultPreviewCount, "number of occurrences to preview")
	flags.Bool("diff", false, "ics: print a diff of the calendar instead of the result")
	flags.BoolP("help", "h", false, "show usage")
	return flags
}

// Load resolves configuration from flags, RRULEDIT_* environment variables and
// an optional config file, in that order of precedence.
func Load(flags *pflag.FlagSet) (Runtime, error) {
	v := viper.New()
	v.SetEnvPrefix("RRULEDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("config", "RRULEDIT_CONFIG")
	_ = v.BindEnv("first-day", "RRULEDIT_FIRST_DAY")
	_ = v.BindEnv("start", "RRULEDIT_START")
	_ = v.BindEnv("format", "RRULEDIT_FORMAT")
	_ = v.BindEnv("log-level", "RRULEDIT_LOG_LEVEL")
	_ = v.BindEnv("count", "RRULEDIT_COUNT")
	_ = v.BindEnv("diff", "RRULEDIT_DIFF")

	v.SetDefault("first-day", "MO")
	v.SetDefault("format", FormatJSON)
	v.SetDefault("log-level", "warn")
	v.SetDefault("count", defaultPreviewCount)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Runtime{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	configFile := strings.TrimSpace(v.GetString("config"))
	if configFile != "" {
		if err := readConfigFile(v, configFile); err != nil {
			return Runtime{}, err
		}
	}

	firstDay, err := ParseWeekday(v.GetString("first-day"))
	if err != nil {
		return Runtime{}, fmt.Errorf("first-day: %w", err)
	}

	var start mo.Option[time.Time]
	if raw := strings.TrimSpace(v.GetString("start")); raw != "" {
		t, err := recurrence.ParseDate(raw)
		if err != nil {
			return Runtime{}, fmt.Errorf("start: %w", err)
		}
		start = mo.Some(t)
	}

	format := strings.ToLower(strings.TrimSpace(v.GetString("format")))
	if format != FormatJSON && format != FormatXCal {
		return Runtime{}, fmt.Errorf("format: unsupported value %q", format)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v.GetString("log-level")))); err != nil {
		return Runtime{}, fmt.Errorf("log-level: %w", err)
	}

	count := v.GetInt("count")
	if count < 1 {
		count = defaultPreviewCount
	}
	if count > maxPreviewCount {
		count = maxPreviewCount
	}

	return Runtime{
		ConfigFile:   configFile,
		FirstWeekday: firstDay,
		Start:        start,
		Format:       format,
		LogLevel:     level,
		Count:        count,
		Diff:         v.GetBool("diff"),
	}, nil
}

// readConfigFile merges a config file into v. Viper reads yaml, toml and json
// itself; ini files go through gopkg.in/ini.v1, keys taken from the default
// section and an optional [rruledit] section.
func readConfigFile(v *viper.Viper, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".ini") {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	values := make(map[string]any)
	for _, section := range []*ini.Section{cfg.Section(ini.DefaultSection), cfg.Section("rruledit")} {
		for _, key := range section.Keys() {
			values[key.Name()] = strings.TrimSpace(key.String())
		}
	}
	if err := v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("merge config file %s: %w", path, err)
	}
	return nil
}

// ParseWeekday accepts a two-letter code ("SU") or an English day name ("sunday")
func ParseWeekday(s string) (time.Weekday, error) {
	value := strings.TrimSpace(s)
	if d, err := recurrence.ParseWeekdayCode(value); err == nil {
		return d, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), value) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: %q", recurrence.ErrUnknownWeekday, s)
}
