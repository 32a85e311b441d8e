package imap

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/tracing"
)

// idle waits for a server push, bounded by the idle timeout, then ends IDLE
// and waits for the command to complete.
func (s *Session) idle(ctx context.Context, c interfaces.IMAPClient) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.idle")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)

	s.status.setPhase(enum.SessionPhaseIdling)

	cmd, err := c.IdleStart(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	s.idleCmd = cmd

	pushed, err := cmd.WaitForPush(ctx, s.cfg.IdleTimeout)
	cmd.Done()
	if err != nil {
		if ctx.Err() != nil {
			// disconnect finishes the IDLE
			return ctx.Err()
		}
		tracing.TraceErr(span, err)
		return err
	}
	span.SetTag("pushed", pushed)

	if err := cmd.Wait(ctx, s.cfg.IdleDoneTimeout); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	s.idleCmd = nil

	if pushed {
		s.log.Debugf("[%s][%s] Server push received", s.cfg.User, s.cfg.Folder)
	}
	return nil
}
