package supervisor

import (
	"context"
	"sync/atomic"
	"time"

	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/customeros/mailbridge/config"
	mailbridge_errors "github.com/customeros/mailbridge/errors"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
)

type Entrypoint func(ctx context.Context) error

type Supervisor struct {
	cfg    *config.RetryConfig
	log    logger.Logger
	window *RestartWindow
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	restarts     atomic.Int64
	suppressions atomic.Int64
}

type Option func(*Supervisor)

func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) {
		s.now = now
	}
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Supervisor) {
		s.sleep = sleep
	}
}

func NewSupervisor(cfg *config.RetryConfig, log logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:    cfg,
		log:    log,
		window: NewRestartWindow(cfg.History),
		now:    utils.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Supervise runs entrypoint until it fails with a non-retryable error or ctx
// ends. Retryable failures restart it at once, or after the suppression
// cooldown when the restart window shows flapping.
func (s *Supervisor) Supervise(ctx context.Context, entrypoint Entrypoint) error {
	for {
		err := entrypoint(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = mailbridge_errors.ErrSessionReturned
		}

		kind := mberrors.KindOf(err)
		if mberrors.ActionFor(kind) != mberrors.ActionRetry {
			s.log.Errorf("Fatal %s error, giving up: %v", kind, err)
			return err
		}

		if err := s.backoff(ctx, kind, err); err != nil {
			return err
		}
	}
}

func (s *Supervisor) backoff(ctx context.Context, kind mberrors.Kind, cause error) error {
	span, ctx := tracing.StartTracerSpan(ctx, "Supervisor.backoff")
	defer span.Finish()
	tracing.TagComponentSupervisor(span)
	span.LogFields(tracingLog.String("kind", kind.String()), tracingLog.String("cause", cause.Error()))

	now := s.now()
	s.window.Record(now)
	s.restarts.Add(1)

	if !s.window.Flapping(now, s.cfg.Interval) {
		s.log.Warnf("Restarting after %s error: %v", kind, cause)
		return nil
	}

	s.suppressions.Add(1)
	span.SetTag("suppressed", true)
	s.log.Warnf("%d failures within %s, suppressing restart for %s: %v",
		s.window.Len(), s.cfg.Interval, s.cfg.RestartSuppress, cause)

	return s.sleep(ctx, s.cfg.RestartSuppress)
}

func (s *Supervisor) Restarts() int64 {
	return s.restarts.Load()
}

func (s *Supervisor) Suppressions() int64 {
	return s.suppressions.Load()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
