package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{
		"canvas": {"base_url": "https://school.instructure.com", "token": "secret"},
		"schedule": {"CS 363": [1, 3]},
		"sync": {"schedule": "30m", "lookback": "720h", "output_path": "./out.ics"},
		"logging": {"level": "debug"}
	}`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Canvas.BaseURL != "https://school.instructure.com" {
		t.Fatalf("base_url = %q", cfg.Canvas.BaseURL)
	}
	if got := cfg.Schedule["CS 363"]; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("schedule = %v", cfg.Schedule)
	}
	if cfg.Sync.Schedule != "30m" || cfg.Sync.OutputPath != "./out.ics" {
		t.Fatalf("sync = %+v", cfg.Sync)
	}
	if !cfg.Logging.ConsoleEnabled() {
		t.Fatal("console should default to enabled")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.yaml", `
canvas:
  base_url: https://school.instructure.com
  token: secret
schedule:
  CS 363: [1, 3]
sync:
  schedule: "*/30 * * * *"
logging:
  level: info
  console: false
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sync.Schedule != "*/30 * * * *" {
		t.Fatalf("sync.schedule = %q", cfg.Sync.Schedule)
	}
	if cfg.Logging.ConsoleEnabled() {
		t.Fatal("console: false should disable console")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{"canvas": {"base_url": "x"}, "no_such_field": 1}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{"canvas": {"base_url": "x"}}{"again": true}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://env.instructure.com")
	t.Setenv(EnvAPIKey, "env-token")

	cfg := &Config{}
	cfg.Canvas.BaseURL = "https://file.instructure.com"
	ApplyEnv(cfg)

	if cfg.Canvas.BaseURL != "https://env.instructure.com" {
		t.Fatalf("base_url = %q, env should win", cfg.Canvas.BaseURL)
	}
	if cfg.Canvas.Token != "env-token" {
		t.Fatalf("token = %q", cfg.Canvas.Token)
	}
}

func TestTimetableFromEnv(t *testing.T) {
	t.Setenv(EnvTimetable, `{"CS 363": [1, 3]}`)
	raw, ok := TimetableFromEnv()
	if !ok || raw == "" {
		t.Fatal("expected timetable from env")
	}

	t.Setenv(EnvTimetable, "")
	t.Setenv(envTimetableLegacy, `{"MATH 205": [0]}`)
	raw, ok = TimetableFromEnv()
	if !ok || raw != `{"MATH 205": [0]}` {
		t.Fatalf("legacy variable not honored: %q, %v", raw, ok)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("sync.lookback", "720h")
	if err != nil || d != 720*time.Hour {
		t.Fatalf("got %v, %v", d, err)
	}
	if _, err := ParseDurationField("sync.lookback", "-5m"); err == nil {
		t.Fatal("expected error for negative duration")
	}
	if _, err := ParseDurationField("sync.lookback", "nope"); err == nil {
		t.Fatal("expected error for invalid duration")
	}

	d, err = ParseDurationOrDefault("sync.lookback", "", 30*time.Minute)
	if err != nil || d != 30*time.Minute {
		t.Fatalf("default not applied: %v, %v", d, err)
	}
}
