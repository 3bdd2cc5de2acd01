package schedule

import (
	"sort"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"canvassync/pkg/logx"
)

// Index holds the weekly meeting pattern per course and answers
// "when does this course meet next, strictly after a given date?".
//
// Keys are short course codes (e.g. "CS 363") matched by substring against
// the full course identifier reported by the LMS ("CS 363-001 Fall 2024").
// Weekday indices use 0=Monday..6=Sunday.
//
// The index is immutable after construction and safe for concurrent reads.
type Index struct {
	keys []string
	days map[string][]int
}

// New builds an index from a course-key -> weekday-indices map.
//
// Entries with a weekday outside [0,6] are dropped with a warning; the rest
// of the map is kept. Duplicate weekdays within one entry are collapsed.
//
// If two keys are both substrings of the same course identifier, the first
// match wins. Map iteration order is not deterministic, so keys are sorted
// at construction to make that tie-break stable across runs.
func New(m map[string][]int, log logx.Logger) *Index {
	if log.IsZero() {
		log = logx.Nop()
	}
	ix := &Index{days: make(map[string][]int, len(m))}
	for key, raw := range m {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		days, ok := normalizeDays(raw)
		if !ok {
			log.Warn("timetable entry has weekday outside 0..6, skipping",
				logx.String("course_key", key), logx.Any("days", raw))
			continue
		}
		if len(days) == 0 {
			continue
		}
		ix.keys = append(ix.keys, key)
		ix.days[key] = days
	}
	sort.Strings(ix.keys)
	return ix
}

// Parse decodes a timetable blob (JSON or YAML mapping of course key to
// weekday list) into an Index.
//
// A malformed blob never fails startup: it yields an empty index and one
// warning, matching the behavior callers rely on for optional secrets.
func Parse(raw string, log logx.Logger) *Index {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(raw) == "" {
		return New(nil, log)
	}
	var m map[string][]int
	if err := yaml.Unmarshal([]byte(raw), &m); err != nil {
		log.Warn("could not parse timetable, class schedule disabled", logx.Err(err))
		return New(nil, log)
	}
	return New(m, log)
}

// Empty reports whether the index has no usable entries.
func (ix *Index) Empty() bool { return ix == nil || len(ix.keys) == 0 }

// Len returns the number of courses in the index.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.keys)
}

// NextClassAfter returns the date of the next scheduled meeting of the
// course identified by courseID, strictly after ref. The time-of-day of ref
// is ignored; the returned date preserves ref's clock fields unchanged.
//
// It returns ok=false when the index is empty or no stored key is a
// substring of courseID.
func (ix *Index) NextClassAfter(courseID string, ref time.Time) (time.Time, bool) {
	if ix.Empty() {
		return time.Time{}, false
	}

	var days []int
	for _, key := range ix.keys {
		if strings.Contains(courseID, key) {
			days = ix.days[key]
			break
		}
	}
	if len(days) == 0 {
		return time.Time{}, false
	}

	refDay := mondayIndex(ref)

	ahead := 0
	for _, d := range days {
		if d > refDay {
			ahead = d - refDay
			break
		}
	}
	// No class later this week (or ref falls exactly on a class day):
	// wrap to the first class day of next week. Never return ref itself.
	if ahead == 0 {
		ahead = (7 - refDay) + days[0]
	}

	return ref.AddDate(0, 0, ahead), true
}

// mondayIndex maps time.Weekday (Sunday=0) onto the 0=Monday..6=Sunday
// convention used by the timetable.
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func normalizeDays(raw []int) ([]int, bool) {
	seen := [7]bool{}
	for _, d := range raw {
		if d < 0 || d > 6 {
			return nil, false
		}
		seen[d] = true
	}
	var days []int
	for d := 0; d < 7; d++ {
		if seen[d] {
			days = append(days, d)
		}
	}
	return days, true
}
