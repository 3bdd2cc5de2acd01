package config

import (
	"bytes"
	"encoding/json"
)

type Config struct {
	Canvas CanvasConfig `json:"canvas"`

	// Schedule is the weekly timetable: course key -> weekday indices
	// (0=Monday..6=Sunday). Example: {"CS 363": [1, 3]}.
	//
	// The CANVAS_TIMETABLE environment variable, when set, replaces this
	// block entirely (it is the secret-friendly way to supply it).
	Schedule map[string][]int `json:"schedule,omitempty"`

	Sync    SyncConfig     `json:"sync"`
	Logging LoggingConfig  `json:"logging"`
	Storage *StorageConfig `json:"storage,omitempty"`
}

type CanvasConfig struct {
	// BaseURL is the Canvas instance root, e.g. "https://school.instructure.com".
	// Overridable via CANVAS_API_URL.
	BaseURL string `json:"base_url,omitempty"`
	// Token is the API access token. Prefer CANVAS_API_KEY over putting it
	// in the file.
	Token string `json:"token,omitempty"`

	PerPage    int     `json:"per_page,omitempty"`
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	Burst      int     `json:"burst,omitempty"`

	// RequestTimeout is a Go duration string (e.g. "30s").
	RequestTimeout string `json:"request_timeout,omitempty"`
}

// SyncConfig controls the sync pass and its trigger.
//
// All durations are Go duration strings (e.g. "30m", "2h").
type SyncConfig struct {
	// Schedule is the trigger spec: cron ("*/30 * * * *", "@hourly"),
	// interval ("30m"), or HH:MM ("02:30"). Empty means run once and exit.
	Schedule string `json:"schedule,omitempty"`

	// Lookback bounds how far back announcements and calendar events are
	// fetched. Default "720h" (30 days).
	Lookback string `json:"lookback,omitempty"`

	// OutputPath is where the .ics file is written. Default "./my_schedule.ics".
	OutputPath string `json:"output_path,omitempty"`

	// Timezone is the IANA zone used for cron triggers, e.g. "Europe/Berlin".
	Timezone string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`
	// Console is a pointer so we can distinguish "omitted" (default true)
	// from an explicit false.
	Console *bool             `json:"console,omitempty"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./canvassync_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ConsoleEnabled resolves the console default (on unless explicitly off).
func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}

func equalJSON(a, b *Config) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
