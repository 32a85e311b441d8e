package imap

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
)

// Session keeps one mailbox folder under watch: connect, poll UNSEEN, IDLE,
// rotate after the configured lifetime, repeat.
type Session struct {
	cfg       *config.ImapConfig
	log       logger.Logger
	extractor interfaces.MessageExtractor
	newClient func() interfaces.IMAPClient
	now       func() time.Time

	// owned by the goroutine running Run
	idleCmd interfaces.IdleCommand

	status *statusTracker
}

type SessionOption func(*Session)

// WithClock replaces the time source used for session rotation.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

func NewSession(cfg *config.ImapConfig, log logger.Logger, extractor interfaces.MessageExtractor, newClient func() interfaces.IMAPClient, opts ...SessionOption) *Session {
	s := &Session{
		cfg:       cfg,
		log:       log,
		extractor: extractor,
		newClient: newClient,
		now:       utils.Now,
		status:    newStatusTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run keeps sessions going until a classified error or ctx cancellation.
// A session that reaches its lifetime is closed and replaced without returning.
func (s *Session) Run(ctx context.Context, deliver interfaces.DeliverFunc) error {
	customContext := *utils.GetContext(ctx)
	customContext.Mailbox = s.cfg.User
	customContext.Folder = s.cfg.Folder
	ctx = utils.WithCustomContext(ctx, &customContext)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.runSession(ctx, deliver); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.status.recordError(err)
			return err
		}
	}
}

func (s *Session) Status() interfaces.SessionStatus {
	return s.status.snapshot()
}

func (s *Session) runSession(ctx context.Context, deliver interfaces.DeliverFunc) error {
	sessionId := utils.NewSessionId()
	ctx = utils.WithSessionId(ctx, sessionId)

	span, ctx := tracing.StartTracerSpan(ctx, "Session.runSession")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)

	c := s.newClient()
	defer s.disconnect(ctx, c)

	s.status.setPhase(enum.SessionPhaseConnecting)
	if err := s.connect(ctx, c); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	start := s.now()
	s.status.connected(sessionId, start, c.State())
	s.log.Infof("[%s][%s] Session %s started", s.cfg.User, s.cfg.Folder, sessionId)

	err := s.loop(ctx, c, start, deliver)
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (s *Session) connect(ctx context.Context, c interfaces.IMAPClient) error {
	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	if err := c.Connect(connectCtx); err != nil {
		return err
	}

	if err := c.Login(ctx, s.cfg.User, s.cfg.Password); err != nil {
		return classifyHandshake("login", err, mberrors.KindCredentials)
	}
	if state := c.State(); state != enum.ConnStateAuth {
		return mberrors.Credentials("login", errors.Errorf("unexpected state %s after login", state))
	}

	if err := c.Select(ctx, s.cfg.Folder); err != nil {
		return classifyHandshake("select", err, mberrors.KindMailbox)
	}
	if state := c.State(); state != enum.ConnStateSelected {
		return mberrors.Mailbox("select", errors.Errorf("unexpected state %s after selecting %s", state, s.cfg.Folder))
	}

	return nil
}

// classifyHandshake keeps transport failures during login/select retryable;
// anything the server actually rejected gets the given fatal kind.
func classifyHandshake(op string, err error, rejected mberrors.Kind) error {
	switch {
	case mberrors.KindOf(err) != mberrors.KindUnknown:
		return err
	case mberrors.IsTimeout(err):
		return mberrors.Timeout(op, err)
	case mberrors.IsTransport(err):
		return mberrors.Connection(op, err)
	default:
		return mberrors.New(rejected, op, err)
	}
}

func (s *Session) loop(ctx context.Context, c interfaces.IMAPClient, start time.Time, deliver interfaces.DeliverFunc) error {
	for {
		if elapsed := s.now().Sub(start); elapsed > s.cfg.SessionDuration {
			s.log.Infof("[%s][%s] Session lifetime of %s reached after %s, rotating",
				s.cfg.User, s.cfg.Folder, s.cfg.SessionDuration, elapsed.Round(time.Second))
			return nil
		}

		if err := s.poll(ctx, c, deliver); err != nil {
			return err
		}

		if err := s.idle(ctx, c); err != nil {
			return err
		}
	}
}

// disconnect never escalates; the transport is always terminated.
func (s *Session) disconnect(ctx context.Context, c interfaces.IMAPClient) {
	span, _ := opentracing.StartSpanFromContext(ctx, "Session.disconnect")
	defer span.Finish()

	disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.DisconnectTimeout)
	defer cancel()

	if c.HasPendingIdle() && s.idleCmd != nil {
		s.idleCmd.Done()
		if err := s.idleCmd.Wait(disconnectCtx, s.cfg.IdleDoneTimeout); err != nil {
			s.log.Warnf("[%s][%s] IDLE did not finish cleanly: %v", s.cfg.User, s.cfg.Folder, err)
		}
	}
	s.idleCmd = nil

	if err := c.Close(disconnectCtx); err != nil {
		s.log.Warnf("[%s][%s] Error closing folder: %v", s.cfg.User, s.cfg.Folder, err)
	}
	if err := c.Logout(disconnectCtx); err != nil {
		s.log.Warnf("[%s][%s] Error during logout: %v", s.cfg.User, s.cfg.Folder, err)
	}
	if err := c.Terminate(); err != nil {
		s.log.Warnf("[%s][%s] Error terminating connection: %v", s.cfg.User, s.cfg.Folder, err)
		tracing.TraceErr(span, err)
	}

	s.status.disconnected()
	s.log.Infof("[%s][%s] Disconnected", s.cfg.User, s.cfg.Folder)
}

// Check performs one connect, login and select round-trip and logs out again.
func (s *Session) Check(ctx context.Context) error {
	span, ctx := tracing.StartTracerSpan(ctx, "Session.Check")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)

	c := s.newClient()
	defer s.disconnect(ctx, c)

	if err := s.connect(ctx, c); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	s.log.Infof("[%s][%s] Connected to %s, state %s", s.cfg.User, s.cfg.Folder, s.cfg.Address(), c.State())
	return nil
}
