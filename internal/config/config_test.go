package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sysmon.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SYSMON_CONFIG", "SYSMON_INTERVAL", "SYSMON_HISTORY", "SYSMON_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Interval != time.Second || cfg.HistoryLength != 60 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestFromFlagsNoArgs(t *testing.T) {
	clearEnv(t)
	cfg, err := FromFlags(nil)
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
sample_interval = "250ms"
history_length = 120
log_level = "debug"
`)
	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Interval != 250*time.Millisecond || cfg.HistoryLength != 120 || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.PerCore {
		t.Error("key missing from file lost its default")
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		cfg := Default()
		if err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"), &cfg); err == nil {
			t.Error("expected error for missing file")
		}
	})
	t.Run("unknown key", func(t *testing.T) {
		cfg := Default()
		err := LoadFile(writeConfig(t, "colour = \"red\"\n"), &cfg)
		if err == nil || !strings.Contains(err.Error(), "colour") {
			t.Errorf("err = %v, want unknown key error", err)
		}
	})
	t.Run("bad syntax", func(t *testing.T) {
		cfg := Default()
		if err := LoadFile(writeConfig(t, "history_length = \n"), &cfg); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, `
sample_interval = "2s"
history_length = 30
`)
	clearEnv(t)
	t.Setenv("SYSMON_CONFIG", path)
	t.Setenv("SYSMON_INTERVAL", "3")

	cfg, err := FromFlags([]string{"-history", "45"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg.Interval != 3*time.Second {
		t.Errorf("interval = %s, want env 3s over file", cfg.Interval)
	}
	if cfg.HistoryLength != 45 {
		t.Errorf("history = %d, want flag 45 over file", cfg.HistoryLength)
	}

	cfg, err = FromFlags([]string{"-interval", "500ms"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg.Interval != 500*time.Millisecond || cfg.HistoryLength != 30 {
		t.Errorf("cfg = %+v, want flag interval and file history", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"interval too small", func(c *Config) { c.Interval = time.Millisecond }},
		{"interval too large", func(c *Config) { c.Interval = 2 * time.Hour }},
		{"history zero", func(c *Config) { c.HistoryLength = 0 }},
		{"history too large", func(c *Config) { c.HistoryLength = 100000 }},
		{"negative timeout", func(c *Config) { c.FetchTimeout = -time.Second }},
		{"both json modes", func(c *Config) { c.JSON, c.JSONStream = true, true }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate returned nil")
			}
		})
	}
}

func TestFromFlagsRejectsInvalid(t *testing.T) {
	clearEnv(t)
	if _, err := FromFlags([]string{"-history", "0"}); err == nil {
		t.Error("expected validation error")
	}
	if _, err := FromFlags([]string{"-no-such-flag"}); err == nil {
		t.Error("expected flag parse error")
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	if err != nil || l != slog.LevelWarn {
		t.Errorf("ParseLevel(warn) = %v, %v", l, err)
	}
}
