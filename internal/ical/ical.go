// Package ical assembles the output calendar and writes it to disk.
package ical

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ics "github.com/arran4/golang-ical"
)

const prodID = "-//canvassync//EN"

// Builder accumulates events for one generated calendar file.
//
// UIDs are derived from the Canvas object kind and id (see UID) so that
// re-generated files keep stable identities and importers do not duplicate
// events on every sync.
type Builder struct {
	cal *ics.Calendar
	now func() time.Time
}

func NewBuilder() *Builder {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(prodID)
	return &Builder{cal: cal, now: time.Now}
}

// UID builds a stable event identity from a Canvas object.
func UID(kind string, id int64) string {
	return fmt.Sprintf("%s-%d@canvassync", kind, id)
}

// AddTimed adds an event with a concrete start time.
func (b *Builder) AddTimed(uid, summary, description string, start time.Time) {
	ev := b.cal.AddEvent(uid)
	ev.SetDtStampTime(b.now().UTC())
	ev.SetStartAt(start.UTC())
	ev.SetSummary(summary)
	if description != "" {
		ev.SetDescription(description)
	}
}

// AddAllDay adds an all-day event on the given date.
func (b *Builder) AddAllDay(uid, summary, description string, day time.Time) {
	ev := b.cal.AddEvent(uid)
	ev.SetDtStampTime(b.now().UTC())
	ev.SetAllDayStartAt(day)
	ev.SetSummary(summary)
	if description != "" {
		ev.SetDescription(description)
	}
}

// Count returns the number of events added so far.
func (b *Builder) Count() int { return len(b.cal.Events()) }

// Serialize renders the calendar document.
func (b *Builder) Serialize() string { return b.cal.Serialize() }

// WriteFile writes data to path atomically (temp file + rename), creating
// parent directories as needed. Calendar importers may poll the file, so a
// half-written document must never be observable.
func WriteFile(path, data string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
