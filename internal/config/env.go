package config

import (
	"os"
	"strings"
)

// Environment overrides. Secrets should come from the environment rather
// than the config file; these names match what the surrounding deployment
// (systemd unit / CI secret store) exports.
const (
	EnvAPIURL = "CANVAS_API_URL"
	EnvAPIKey = "CANVAS_API_KEY"

	// EnvTimetable carries the weekly timetable as a JSON/YAML mapping,
	// e.g. {"CS 363": [1, 3], "MATH 205": [0, 2, 4]}.
	EnvTimetable = "CANVAS_TIMETABLE"
	// envTimetableLegacy is the name the original deployment used.
	envTimetableLegacy = "MY_TIMETABLE"
)

// ApplyEnv overlays environment-supplied values onto cfg.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.Canvas.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.Canvas.Token = v
	}
}

// TimetableFromEnv returns the raw timetable blob from the environment.
// ok is false when neither variable is set.
func TimetableFromEnv() (raw string, ok bool) {
	for _, key := range []string{EnvTimetable, envTimetableLegacy} {
		if v, set := os.LookupEnv(key); set && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}
