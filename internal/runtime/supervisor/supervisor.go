// Package supervisor manages named background goroutines tied to a shared
// context, with panic recovery and timeout-aware shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"canvassync/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log logx.Logger

	errOnce  sync.Once
	firstErr atomic.Value // stores error
	wg       sync.WaitGroup
}

// New derives a supervised context from parent. Goroutines started with Go
// all stop when Stop is called or the parent context ends.
func New(parent context.Context, log logx.Logger) *Supervisor {
	if log.IsZero() {
		log = logx.Nop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{ctx: ctx, cancel: cancel, log: log}
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Go starts fn under the supervisor. A panic is recovered and recorded as
// the goroutine's error; it never takes the process down.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		start := time.Now()
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				s.log.Error("goroutine panicked",
					logx.String("name", name),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())))
			}
			if err != nil && s.ctx.Err() == nil {
				s.recordErr(err)
				s.log.Error("goroutine exited with error",
					logx.String("name", name),
					logx.Duration("ran", time.Since(start)),
					logx.Err(err))
				return
			}
			s.log.Debug("goroutine exited",
				logx.String("name", name),
				logx.Duration("ran", time.Since(start)))
		}()

		err = fn(s.ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}()
}

func (s *Supervisor) recordErr(err error) {
	s.errOnce.Do(func() { s.firstErr.Store(err) })
}

// FirstErr returns the first non-cancellation error recorded, if any.
func (s *Supervisor) FirstErr() error {
	if v := s.firstErr.Load(); v != nil {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// Stop cancels the supervised context and waits up to timeout for all
// goroutines to exit.
func (s *Supervisor) Stop(timeout time.Duration) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("supervisor: %s shutdown timeout", timeout)
	}
}
