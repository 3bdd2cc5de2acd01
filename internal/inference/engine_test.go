package inference

import (
	"strings"
	"testing"
	"time"

	"canvassync/internal/schedule"
	"canvassync/pkg/logx"
)

func clock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
}

func newEngine(t *testing.T, timetable map[string][]int, now func() time.Time) *Engine {
	t.Helper()
	e := New(schedule.New(timetable, logx.Nop()), logx.Nop())
	if now != nil {
		e = e.WithClock(now)
	}
	return e
}

func TestResolveFallbackIdentity(t *testing.T) {
	t.Parallel()
	e := newEngine(t, nil, nil)

	tests := []struct {
		name   string
		posted string
		want   string
	}{
		{name: "bare date", posted: "2024-01-03", want: "2024-01-03"},
		{name: "full timestamp", posted: "2024-01-03T15:04:05Z", want: "2024-01-03"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res := e.Resolve("", tt.posted, "CS 363")
			if got := res.Date.Format("2006-01-02"); got != tt.want {
				t.Fatalf("Resolve(empty) = %s, want %s", got, tt.want)
			}
			if res.Outcome != OutcomeFallback {
				t.Fatalf("Outcome = %v, want fallback", res.Outcome)
			}
		})
	}
}

func TestResolveExplicitDate(t *testing.T) {
	t.Parallel()
	e := newEngine(t, nil, clock(2024, time.June, 1))

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "day first with ordinal and year", text: "Due 3rd Oct, 2024", want: "2024-10-03"},
		{name: "month first with ordinal and year", text: "Due Oct 3rd 2024", want: "2024-10-03"},
		{name: "day first plain", text: "submit by 15 November 2025 please", want: "2025-11-15"},
		{name: "month first full name", text: "Exam on December 12, 2024", want: "2024-12-12"},
		{name: "day first wins over month first", text: "5 Jan 2025 not Oct 3 2024", want: "2025-01-05"},
		{name: "mixed case", text: "due 3RD oCt 2024", want: "2024-10-03"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res := e.Resolve(tt.text, "2024-01-01", "CS 363")
			if res.Outcome != OutcomeExplicitDate {
				t.Fatalf("Outcome = %v, want explicit_date", res.Outcome)
			}
			if got := res.Date.Format("2006-01-02"); got != tt.want {
				t.Fatalf("Resolve(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestResolveYearInference(t *testing.T) {
	t.Parallel()
	// Real-world month is November: "2 Mar" (gap 8 > 6) rolls into next
	// year, "2 Sep" (gap 2) stays in the current one.
	e := newEngine(t, nil, clock(2024, time.November, 15))

	tests := []struct {
		text string
		want string
	}{
		{text: "Meet on 2 Mar", want: "2025-03-02"},
		{text: "Meet on 2 Sep", want: "2024-09-02"},
		{text: "Meet on 2 Dec", want: "2024-12-02"},
		// Explicit year always wins over the heuristic.
		{text: "Meet on 2 Mar 2024", want: "2024-03-02"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.text, func(t *testing.T) {
			res := e.Resolve(tt.text, "2024-11-01", "CS 363")
			if got := res.Date.Format("2006-01-02"); got != tt.want {
				t.Fatalf("Resolve(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestResolveNextClass(t *testing.T) {
	t.Parallel()
	timetable := map[string][]int{"CS 363": {1, 3}} // Tue, Thu
	e := newEngine(t, timetable, clock(2024, time.January, 3))

	// Posted Wednesday 2024-01-03; next class is Thursday.
	res := e.Resolve("No quiz tomorrow, moved to next class.", "2024-01-03T09:00:00Z", "CS 363-001 Fall 2024")
	if res.Outcome != OutcomeNextClass {
		t.Fatalf("Outcome = %v, want next_class", res.Outcome)
	}
	if got := res.Date.Format("2006-01-02"); got != "2024-01-04" {
		t.Fatalf("date = %s, want 2024-01-04", got)
	}
}

func TestResolveNextClassPhraseVariants(t *testing.T) {
	t.Parallel()
	timetable := map[string][]int{"CS 363": {1, 3}}
	e := newEngine(t, timetable, clock(2024, time.January, 3))

	tests := []struct {
		name  string
		text  string
		match bool
	}{
		{name: "next lecture", text: "slides posted before the NEXT LECTURE", match: true},
		{name: "next session", text: "bring laptops to the next  session", match: true},
		{name: "not a whole word", text: "anext class", match: false},
		{name: "suffix breaks boundary", text: "the next classic experiment", match: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res := e.Resolve(tt.text, "2024-01-03", "CS 363")
			got := res.Outcome == OutcomeNextClass
			if got != tt.match {
				t.Fatalf("next-class match = %v, want %v for %q", got, tt.match, tt.text)
			}
		})
	}
}

// A relative phrase outranks an explicit date in the same text.
func TestResolveNextClassWinsOverExplicitDate(t *testing.T) {
	t.Parallel()
	timetable := map[string][]int{"CS 363": {1, 3}}
	e := newEngine(t, timetable, clock(2024, time.January, 3))

	res := e.Resolve("Quiz moved from 10 Oct 2024 to next class", "2024-01-03", "CS 363")
	if res.Outcome != OutcomeNextClass {
		t.Fatalf("Outcome = %v, want next_class", res.Outcome)
	}
	if got := res.Date.Format("2006-01-02"); got != "2024-01-04" {
		t.Fatalf("date = %s, want 2024-01-04", got)
	}
}

// Without a timetable entry the relative rule falls through to the explicit
// date instead of giving up.
func TestResolveNextClassFallsThrough(t *testing.T) {
	t.Parallel()
	e := newEngine(t, nil, clock(2024, time.January, 3))

	res := e.Resolve("see you next class on 10 Oct 2024", "2024-01-03", "CS 363")
	if res.Outcome != OutcomeExplicitDate {
		t.Fatalf("Outcome = %v, want explicit_date", res.Outcome)
	}
	if got := res.Date.Format("2006-01-02"); got != "2024-10-10" {
		t.Fatalf("date = %s, want 2024-10-10", got)
	}
}

func TestResolveRecoversToFallback(t *testing.T) {
	t.Parallel()
	e := newEngine(t, nil, clock(2024, time.June, 1))

	tests := []struct {
		name string
		text string
	}{
		{name: "impossible day", text: "party on 31 Apr 2024"},
		{name: "zero day", text: "0 Jan 2024"},
		{name: "no date at all", text: "remember to bring your own snacks"},
		{name: "emoji", text: "🎉🎉🎉"},
		{name: "binary garbage", text: string([]byte{0x00, 0xff, 0xfe, 0x01})},
		{name: "huge input", text: strings.Repeat("lorem ipsum ", 10000)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res := e.Resolve(tt.text, "2024-01-03", "CS 363")
			if res.Outcome != OutcomeFallback {
				t.Fatalf("Outcome = %v, want fallback", res.Outcome)
			}
			if got := res.Date.Format("2006-01-02"); got != "2024-01-03" {
				t.Fatalf("date = %s, want posted date 2024-01-03", got)
			}
		})
	}
}

func TestResolveBadPostedTimestamp(t *testing.T) {
	t.Parallel()
	e := newEngine(t, nil, clock(2024, time.June, 1))

	res := e.Resolve("no date here", "not-a-timestamp", "CS 363")
	if got := res.Date.Format("2006-01-02"); got != "2024-06-01" {
		t.Fatalf("date = %s, want clock date 2024-06-01", got)
	}
}

func TestResolveIdempotent(t *testing.T) {
	t.Parallel()
	timetable := map[string][]int{"CS 363": {1, 3}}
	e := newEngine(t, timetable, clock(2024, time.January, 3))

	a := e.Resolve("see you next class", "2024-01-03", "CS 363")
	b := e.Resolve("see you next class", "2024-01-03", "CS 363")
	if !a.Date.Equal(b.Date) || a.Outcome != b.Outcome {
		t.Fatalf("Resolve not idempotent: %v vs %v", a, b)
	}
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()
	if OutcomeNextClass.String() != "next_class" ||
		OutcomeExplicitDate.String() != "explicit_date" ||
		OutcomeFallback.String() != "fallback" {
		t.Fatal("unexpected Outcome string rendering")
	}
}
