// Package syncer runs one full sync pass: fetch from Canvas, infer dates
// for announcements, assemble the calendar, write the .ics file.
//
// A pass is resilient by construction: a course that fails to fetch is
// logged and skipped, the personal-calendar sweep is best effort, and only
// a failure to list courses (or to write the output file) fails the pass.
package syncer

import (
	"context"
	"fmt"
	"time"

	"canvassync/internal/canvas"
	"canvassync/internal/ical"
	"canvassync/internal/inference"
	"canvassync/internal/storage"
	"canvassync/pkg/logx"
)

// API is the slice of the Canvas client the syncer consumes. Tests supply
// a fake.
type API interface {
	ActiveCourses(ctx context.Context) ([]canvas.Course, error)
	UpcomingAssignments(ctx context.Context, courseID int64) ([]canvas.Assignment, error)
	Announcements(ctx context.Context, courseID int64) ([]canvas.Announcement, error)
	CalendarEvents(ctx context.Context, startDate string) ([]canvas.CalendarEvent, error)
}

type Config struct {
	// Lookback bounds how old an announcement or calendar event may be and
	// still be exported. Default 30 days.
	Lookback time.Duration
	// OutputPath is the .ics destination. Default "./my_schedule.ics".
	OutputPath string
}

type Service struct {
	api    API
	engine *inference.Engine
	store  storage.Store // may be nil (storage disabled)
	cfg    Config
	log    logx.Logger
	now    func() time.Time
}

func New(api API, engine *inference.Engine, store storage.Store, cfg Config, log logx.Logger) *Service {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 30 * 24 * time.Hour
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = "./my_schedule.ics"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{api: api, engine: engine, store: store, cfg: cfg, log: log, now: time.Now}
}

// Run executes one sync pass and records it in storage.
func (s *Service) Run(ctx context.Context) error {
	started := s.now()
	run := storage.SyncRun{At: started}

	err := s.pass(ctx, &run)

	run.TookMS = time.Since(started).Milliseconds()
	if err != nil {
		run.Error = err.Error()
	}
	if s.store != nil {
		if aerr := s.store.AppendRun(ctx, run); aerr != nil {
			s.log.Warn("could not record sync run", logx.Err(aerr))
		}
	}

	if err != nil {
		s.log.Error("sync pass failed", logx.Err(err), logx.Int64("took_ms", run.TookMS))
		return err
	}
	s.log.Info("sync pass done",
		logx.Int("courses", run.Courses),
		logx.Int("assignments", run.Assignments),
		logx.Int("announcements", run.Announcements),
		logx.Int("calendar_events", run.CalendarEvents),
		logx.Int("new", run.NewEvents),
		logx.Int64("took_ms", run.TookMS))
	return nil
}

func (s *Service) pass(ctx context.Context, run *storage.SyncRun) error {
	windowStart := run.At.Add(-s.cfg.Lookback)
	startDate := windowStart.Format("2006-01-02")

	cal := ical.NewBuilder()

	courses, err := s.api.ActiveCourses(ctx)
	if err != nil {
		return fmt.Errorf("listing courses: %w", err)
	}
	run.Courses = len(courses)

	for _, course := range courses {
		if err := s.syncCourse(ctx, cal, course, windowStart, run); err != nil {
			s.log.Warn("course sync failed, skipping",
				logx.String("course", course.CourseCode),
				logx.Err(err))
		}
	}

	// Personal calendar events: best effort, never fails the pass.
	events, err := s.api.CalendarEvents(ctx, startDate)
	if err != nil {
		s.log.Warn("calendar event sweep failed", logx.Err(err))
	} else {
		for _, ev := range events {
			start, perr := time.Parse(time.RFC3339, ev.StartAt)
			if perr != nil {
				continue
			}
			cal.AddTimed(ical.UID("calevent", ev.ID), "🗓️ "+ev.Title, "", start)
			run.CalendarEvents++
			s.markSeen(ctx, run, "calevent", ev.ID)
		}
	}

	if err := ical.WriteFile(s.cfg.OutputPath, cal.Serialize()); err != nil {
		return fmt.Errorf("writing %s: %w", s.cfg.OutputPath, err)
	}
	return nil
}

func (s *Service) syncCourse(ctx context.Context, cal *ical.Builder, course canvas.Course, windowStart time.Time, run *storage.SyncRun) error {
	assignments, err := s.api.UpcomingAssignments(ctx, course.ID)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if a.DueAt == "" {
			continue
		}
		due, perr := time.Parse(time.RFC3339, a.DueAt)
		if perr != nil {
			s.log.Debug("assignment has unparseable due_at, skipping",
				logx.Int64("assignment", a.ID), logx.String("due_at", a.DueAt))
			continue
		}
		summary := fmt.Sprintf("📝 %s (%s)", a.Name, course.CourseCode)
		cal.AddTimed(ical.UID("assignment", a.ID), summary, a.HTMLURL, due)
		run.Assignments++
		s.markSeen(ctx, run, "assignment", a.ID)
	}

	announcements, err := s.api.Announcements(ctx, course.ID)
	if err != nil {
		return err
	}
	for _, ann := range announcements {
		if ann.PostedAt == "" {
			continue
		}
		posted, perr := time.Parse(time.RFC3339, ann.PostedAt)
		if perr != nil {
			continue
		}
		if posted.Before(windowStart) {
			continue
		}

		// Title and body both get searched: dates hide in either.
		plain := stripHTML(ann.Message)
		res := s.engine.Resolve(ann.Title+" "+plain, ann.PostedAt, course.CourseCode)

		summary := fmt.Sprintf("📢 %s (%s)", ann.Title, course.CourseCode)
		desc := fmt.Sprintf("Originally Posted: %s\n%s\n\n%s...",
			ann.PostedAt[:10], ann.HTMLURL, truncate(plain, 200))
		cal.AddAllDay(ical.UID("announcement", ann.ID), summary, desc, res.Date)
		run.Announcements++
		s.markSeen(ctx, run, "announcement", ann.ID)

		s.log.Debug("announcement resolved",
			logx.String("course", course.CourseCode),
			logx.String("title", ann.Title),
			logx.String("outcome", res.Outcome.String()),
			logx.String("date", res.Date.Format("2006-01-02")))
	}
	return nil
}

func (s *Service) markSeen(ctx context.Context, run *storage.SyncRun, kind string, id int64) {
	if s.store == nil {
		return
	}
	isNew, err := s.store.MarkSeen(ctx, fmt.Sprintf("%s:%d", kind, id), run.At)
	if err != nil {
		s.log.Debug("seen-set update failed", logx.Err(err))
		return
	}
	if isNew {
		run.NewEvents++
	}
}
