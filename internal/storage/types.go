package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// SyncRun records one completed sync pass.
// Keep it compact and schema-stable.
type SyncRun struct {
	At             time.Time `json:"at"`
	Courses        int       `json:"courses"`
	Assignments    int       `json:"assignments"`
	Announcements  int       `json:"announcements"`
	CalendarEvents int       `json:"calendar_events"`
	NewEvents      int       `json:"new_events"`
	Error          string    `json:"error,omitempty"`
	TookMS         int64     `json:"took_ms"`
}
