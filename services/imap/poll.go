package imap

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/tracing"
)

// poll searches for UNSEEN messages, fetches them all, then hands each one
// to deliver and marks it \Seen. Per-message failures stop here.
func (s *Session) poll(ctx context.Context, c interfaces.IMAPClient, deliver interfaces.DeliverFunc) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.poll")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)

	s.status.setPhase(enum.SessionPhasePolling)
	defer s.status.polled(s.now())

	if state := c.State(); state != enum.ConnStateSelected {
		err := mberrors.Connection("poll", mberrors.ErrNotSelected)
		tracing.TraceErr(span, err)
		return err
	}

	seqNums, err := c.Search(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	span.SetTag("unseen", len(seqNums))
	s.log.Infof("[%s][%s] Found %d new message(s)", s.cfg.User, s.cfg.Folder, len(seqNums))
	if len(seqNums) == 0 {
		return nil
	}

	refs := make([]*dto.MessageRef, 0, len(seqNums))
	for _, seqNum := range seqNums {
		ref, err := c.Fetch(ctx, seqNum)
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		refs = append(refs, ref)
	}

	for _, ref := range refs {
		if err := s.process(ctx, c, ref, deliver); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	return nil
}

// process returns an error only when the \Seen store fails.
func (s *Session) process(ctx context.Context, c interfaces.IMAPClient, ref *dto.MessageRef, deliver interfaces.DeliverFunc) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.process")
	defer span.Finish()
	span.SetTag("seq", ref.SeqNum)

	msg, err := s.extractor.Extract(ref.Raw)
	switch {
	case err != nil:
		tracing.TraceErr(span, err)
		s.log.Warnf("[%s][%s] Skipping message %d: %v", s.cfg.User, s.cfg.Folder, ref.SeqNum, err)
		s.status.skipped()
	default:
		if err := deliver(ctx, msg); err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("[%s][%s] Delivery of message %d failed: %v", s.cfg.User, s.cfg.Folder, ref.SeqNum, err)
			s.status.failed()
		} else {
			s.log.Infof("[%s][%s] Delivered message %d", s.cfg.User, s.cfg.Folder, ref.SeqNum)
			s.status.delivered()
		}
	}

	if err := c.Store(ctx, ref.SeqNum); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
