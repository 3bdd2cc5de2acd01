// Package inference resolves a concrete calendar date from free-form
// announcement text.
//
// Announcements rarely state a full date. They say "next class", "due 3rd
// Oct", "quiz on Oct 3" — or nothing at all. The engine applies a fixed rule
// chain and always produces a date:
//
//  1. relative phrase ("next class/lecture/session") -> timetable lookup
//  2. explicit date (day-first, then month-first surface form)
//  3. the announcement's own posted date
//
// Resolve is total: malformed input degrades to the posted date, it never
// returns an error.
package inference

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"canvassync/internal/schedule"
	"canvassync/pkg/logx"
)

// Outcome tags which rule produced the resolved date.
type Outcome int

const (
	// OutcomeFallback means no rule matched; the posted date was used.
	OutcomeFallback Outcome = iota
	// OutcomeNextClass means a relative phrase matched and the timetable
	// supplied the next meeting date.
	OutcomeNextClass
	// OutcomeExplicitDate means a literal date was found in the text.
	OutcomeExplicitDate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNextClass:
		return "next_class"
	case OutcomeExplicitDate:
		return "explicit_date"
	default:
		return "fallback"
	}
}

// Resolution is the result of one Resolve call.
type Resolution struct {
	Date    time.Time
	Outcome Outcome
}

const dayLayout = "2006-01-02"

var nextClassRe = regexp.MustCompile(`(?i)\bnext\s+(class|lecture|session)\b`)

// The two explicit-date surface forms. Day-first is tried before
// month-first; the first matcher that succeeds wins.
//
// The day group is deliberately not anchored on a word boundary: "2024 Jan"
// should still surface day=24, matching long-standing behavior that
// downstream tests pin.
var explicitMatchers = []matcher{
	{
		name: "day-first",
		re:   regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s*,?\s*(\d{4})?`),
		extract: func(g []string) (dayToken, monthToken, yearToken string) {
			return g[1], g[2], g[3]
		},
	},
	{
		name: "month-first",
		re:   regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{1,2})(?:st|nd|rd|th)?\s*,?\s*(\d{4})?`),
		extract: func(g []string) (dayToken, monthToken, yearToken string) {
			return g[2], g[1], g[3]
		},
	},
}

type matcher struct {
	name    string
	re      *regexp.Regexp
	extract func(groups []string) (dayToken, monthToken, yearToken string)
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Engine resolves announcement text against a course timetable.
//
// It holds no mutable state; one Engine may serve concurrent Resolve calls.
type Engine struct {
	index *schedule.Index
	log   logx.Logger

	// now is the clock used for year inference. Tests replace it.
	now func() time.Time
}

// New builds an engine. index may be empty (relative phrases then always
// fall through to the explicit-date rule).
func New(index *schedule.Index, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{index: index, log: log, now: time.Now}
}

// WithClock returns a copy of the engine using the given clock for year
// inference.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// Resolve infers one date from announcement text.
//
// postedAt must start with a "YYYY-MM-DD" day; everything after the first 10
// characters is ignored. courseID is the full course identifier used for the
// timetable lookup.
//
// Resolve never fails: when nothing better can be inferred, or the matched
// date is invalid (e.g. 31 Apr), the posted date is returned with
// OutcomeFallback.
func (e *Engine) Resolve(text, postedAt, courseID string) Resolution {
	fallback := e.fallbackDate(postedAt)
	if text == "" {
		return Resolution{Date: fallback, Outcome: OutcomeFallback}
	}

	if nextClassRe.MatchString(text) {
		if next, ok := e.index.NextClassAfter(courseID, fallback); ok {
			e.log.Info("relative phrase resolved to next class",
				logx.String("course", courseID),
				logx.String("date", next.Format(dayLayout)))
			return Resolution{Date: next, Outcome: OutcomeNextClass}
		}
	}

	if d, ok := e.resolveExplicit(text); ok {
		return Resolution{Date: d, Outcome: OutcomeExplicitDate}
	}
	return Resolution{Date: fallback, Outcome: OutcomeFallback}
}

// fallbackDate parses the first 10 characters of postedAt as a day. A value
// that does not carry a valid day prefix degrades to today's date, so the
// engine stays total even on garbage input.
func (e *Engine) fallbackDate(postedAt string) time.Time {
	s := postedAt
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		e.log.Warn("posted timestamp has no YYYY-MM-DD prefix, using today",
			logx.String("posted_at", postedAt))
		now := e.now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return d
}

// resolveExplicit runs the ordered matcher list and converts the first hit
// into a date. Every failure mode in here (unknown month token, non-numeric
// day, impossible calendar day) is recoverable and reports ok=false.
func (e *Engine) resolveExplicit(text string) (time.Time, bool) {
	for _, m := range explicitMatchers {
		groups := m.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		dayToken, monthToken, yearToken := m.extract(groups)

		day, err := strconv.Atoi(dayToken)
		if err != nil {
			return time.Time{}, false
		}
		month, ok := months[strings.ToLower(monthToken)[:3]]
		if !ok {
			return time.Time{}, false
		}
		year, ok := e.inferYear(yearToken, month)
		if !ok {
			return time.Time{}, false
		}

		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes out-of-range days (Apr 31 -> May 1); an
		// announcement naming an impossible day falls back instead.
		if d.Year() != year || d.Month() != month || d.Day() != day {
			return time.Time{}, false
		}
		return d, true
	}
	return time.Time{}, false
}

// inferYear picks the year for a match without an explicit one. An early
// month mentioned late in the calendar year (gap > 6 months) is read as next
// year's occurrence — announcements about "2 Mar" posted in November mean
// the coming spring term, not last spring.
func (e *Engine) inferYear(yearToken string, month time.Month) (int, bool) {
	if yearToken != "" {
		y, err := strconv.Atoi(yearToken)
		if err != nil {
			return 0, false
		}
		return y, true
	}
	now := e.now()
	curMonth := int(now.Month())
	if int(month) < curMonth && curMonth-int(month) > 6 {
		return now.Year() + 1, true
	}
	return now.Year(), true
}
