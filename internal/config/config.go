package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	minInterval      = 100 * time.Millisecond
	maxInterval      = time.Hour
	minHistoryLength = 1
	maxHistoryLength = 3600
)

// Config carries runtime options for sysmon.
type Config struct {
	Interval      time.Duration `toml:"sample_interval"`
	HistoryLength int           `toml:"history_length"`
	FetchTimeout  time.Duration `toml:"fetch_timeout"` // 0 = one interval
	JSON          bool          `toml:"json"`
	JSONStream    bool          `toml:"json_stream"`
	PerCore       bool          `toml:"per_core"`
	LogLevel      string        `toml:"log_level"`
	LogFile       string        `toml:"log_file"`
}

func Default() Config {
	return Config{
		Interval:      time.Second,
		HistoryLength: 60,
		PerCore:       true,
		LogLevel:      "info",
	}
}

// LoadFile overlays the TOML file at path onto cfg. Keys missing from the
// file keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// FromFlags builds the effective config. Precedence, lowest first:
// defaults, TOML file (-config or SYSMON_CONFIG), environment, flags.
func FromFlags(args []string) (Config, error) {
	flagged := Default()
	fs := flag.NewFlagSet("sysmon", flag.ContinueOnError)
	path := fs.String("config", os.Getenv("SYSMON_CONFIG"), "path to a TOML config file")
	fs.DurationVar(&flagged.Interval, "interval", flagged.Interval, "sample interval")
	fs.IntVar(&flagged.HistoryLength, "history", flagged.HistoryLength, "samples kept per metric")
	fs.DurationVar(&flagged.FetchTimeout, "fetch-timeout", flagged.FetchTimeout, "upper bound for one metric read (0 = interval)")
	fs.BoolVar(&flagged.JSON, "json", flagged.JSON, "output one-shot JSON and exit")
	fs.BoolVar(&flagged.JSONStream, "json-stream", flagged.JSONStream, "stream NDJSON until interrupted")
	fs.BoolVar(&flagged.PerCore, "per-core", flagged.PerCore, "show per-core gauges")
	fs.StringVar(&flagged.LogLevel, "log-level", flagged.LogLevel, "debug|info|warn|error")
	fs.StringVar(&flagged.LogFile, "log-file", flagged.LogFile, "write logs to this file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *path != "" {
		if err := LoadFile(*path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "interval":
			cfg.Interval = flagged.Interval
		case "history":
			cfg.HistoryLength = flagged.HistoryLength
		case "fetch-timeout":
			cfg.FetchTimeout = flagged.FetchTimeout
		case "json":
			cfg.JSON = flagged.JSON
		case "json-stream":
			cfg.JSONStream = flagged.JSONStream
		case "per-core":
			cfg.PerCore = flagged.PerCore
		case "log-level":
			cfg.LogLevel = flagged.LogLevel
		case "log-file":
			cfg.LogFile = flagged.LogFile
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SYSMON_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Interval = parsed
		} else if parsed, err2 := time.ParseDuration(v + "s"); err2 == nil {
			cfg.Interval = parsed
		}
	}
	if v := os.Getenv("SYSMON_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryLength = n
		}
	}
	if v := os.Getenv("SYSMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate reports the first out-of-range option.
func (c Config) Validate() error {
	if c.Interval < minInterval || c.Interval > maxInterval {
		return fmt.Errorf("sample_interval must be between %s and %s, got %s", minInterval, maxInterval, c.Interval)
	}
	if c.HistoryLength < minHistoryLength || c.HistoryLength > maxHistoryLength {
		return fmt.Errorf("history_length must be between %d and %d, got %d", minHistoryLength, maxHistoryLength, c.HistoryLength)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must not be negative, got %s", c.FetchTimeout)
	}
	if c.JSON && c.JSONStream {
		return errors.New("json and json_stream are mutually exclusive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log level name to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
