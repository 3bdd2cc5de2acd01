// Package scheduler triggers the sync pass on a configured cadence.
//
// A single job is registered with a schedule string (cron, interval, or
// HH:MM — see ParseSchedule). Overlapping triggers are skipped: a pass that
// is still running is never started a second time.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"canvassync/pkg/logx"
)

type Service struct {
	log logx.Logger
	loc *time.Location

	parser cron.Parser

	mu      sync.Mutex
	c       *cron.Cron
	started bool

	running atomic.Bool
}

// New creates the trigger service. timezone is an IANA zone name; empty
// means local time.
func New(log logx.Logger, timezone string) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	loc := time.Local
	if strings.TrimSpace(timezone) != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, err
		}
		loc = l
	}
	return &Service{
		log:    log,
		loc:    loc,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}, nil
}

// Start registers job under the given schedule spec and begins triggering.
// Interval and HH:MM specs are normalized to "@every"; everything runs on
// one robfig/cron instance.
func (s *Service) Start(ctx context.Context, spec string, job func(ctx context.Context) error) error {
	ps, err := ParseSchedule(spec)
	if err != nil {
		return err
	}
	expr := ps.Cron
	if ps.Kind == SpecInterval {
		expr = "@every " + ps.Every.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	_, err = c.AddFunc(expr, func() {
		if !s.running.CompareAndSwap(false, true) {
			s.log.Warn("previous sync still running, skipping trigger")
			return
		}
		defer s.running.Store(false)

		if ctx.Err() != nil {
			return
		}
		if err := job(ctx); err != nil {
			s.log.Error("scheduled sync failed", logx.Err(err))
		}
	})
	if err != nil {
		return err
	}

	s.c = c
	s.started = true
	c.Start()

	if next := c.Entries(); len(next) > 0 {
		s.log.Info("sync schedule registered",
			logx.String("spec", expr),
			logx.Time("next", next[0].Schedule.Next(time.Now().In(s.loc))))
	}
	return nil
}

// Stop halts triggering and waits for an in-flight run to finish, bounded
// by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.started = false
	s.mu.Unlock()

	if c == nil {
		return
	}
	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out waiting for running job")
	}
}
