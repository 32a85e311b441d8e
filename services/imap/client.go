package imap

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
)

// imapClient adapts go-imap's client to interfaces.IMAPClient. One instance
// serves one connection; the session creates a fresh one per connect.
type imapClient struct {
	cfg  *config.ImapConfig
	log  logger.Logger
	conn net.Conn
	c    *client.Client

	// 1-slot signal raised for any unilateral server update
	push chan struct{}
	idle *idleCommand
}

func NewIMAPClient(cfg *config.ImapConfig, log logger.Logger) interfaces.IMAPClient {
	return &imapClient{
		cfg:  cfg,
		log:  log,
		push: make(chan struct{}, 1),
	}
}

// ClientFactory returns a constructor suitable for NewSession.
func ClientFactory(cfg *config.ImapConfig, log logger.Logger) func() interfaces.IMAPClient {
	return func() interfaces.IMAPClient {
		return NewIMAPClient(cfg, log)
	}
}

func (a *imapClient) Connect(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPClient.Connect")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)
	span.SetTag("server", a.cfg.Host)
	span.SetTag("port", a.cfg.Port)
	span.SetTag("tls", a.cfg.TLS)

	connectCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	defer cancel()

	dialer := &net.Dialer{
		Timeout:   a.cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	raw, err := dialer.DialContext(connectCtx, "tcp", a.cfg.Address())
	if err != nil {
		tracing.TraceErr(span, err)
		return classifyConnect(connectCtx, err)
	}

	// client.New may issue CAPABILITY with no deadline of its own; closing the
	// socket is what unblocks the handshake once connectCtx is done.
	stop := context.AfterFunc(connectCtx, func() {
		raw.Close()
	})
	conn, c, err := a.handshake(connectCtx, raw)
	if !stop() && err == nil {
		err = errors.Wrap(context.Cause(connectCtx), "connection closed during handshake")
	}
	if err != nil {
		raw.Close()
		tracing.TraceErr(span, err)
		return classifyConnect(connectCtx, err)
	}

	c.ErrorLog = newErrorLog(a.log)
	updates := make(chan client.Update, 16)
	c.Updates = updates
	go a.pump(updates, c.LoggedOut())

	a.conn = conn
	a.c = c

	a.log.Infof("[%s][%s] Connected to %s", a.cfg.User, a.cfg.Folder, a.cfg.Address())
	return nil
}

// pump drains unilateral updates so the go-imap reader never blocks. It exits
// once the reader goroutine has stopped.
func (a *imapClient) pump(updates <-chan client.Update, loggedOut <-chan struct{}) {
	for {
		select {
		case update := <-updates:
			a.log.Debugf("[%s][%s] Received update: %T", a.cfg.User, a.cfg.Folder, update)
			select {
			case a.push <- struct{}{}:
			default:
			}
		case <-loggedOut:
			return
		}
	}
}

// handshake runs the TLS handshake and reads the greeting under the connect
// deadline, which is cleared again before the connection is handed over.
func (a *imapClient) handshake(ctx context.Context, conn net.Conn) (net.Conn, *client.Client, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, nil, err
		}
	}

	if a.cfg.TLS {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: a.cfg.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, nil, err
		}
		conn = tlsConn
	}

	c, err := client.New(conn)
	if err != nil {
		return nil, nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return conn, c, nil
}

func classifyConnect(ctx context.Context, err error) error {
	if mberrors.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return mberrors.Timeout("connect", err)
	}
	return mberrors.Connection("connect", err)
}

// command runs fn under the per-command deadline and clears the socket
// deadline afterwards, so a slow caller between commands does not trip it.
func (a *imapClient) command(ctx context.Context, timeout time.Duration, fn func(c *client.Client) error) error {
	if a.c == nil {
		return mberrors.Connection("command", client.ErrNotLoggedIn)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	a.c.Timeout = timeout
	err := fn(a.c)
	a.c.Timeout = 0
	if a.conn != nil {
		_ = a.conn.SetDeadline(time.Time{})
	}
	return err
}

func (a *imapClient) Login(ctx context.Context, user, password string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPClient.Login")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)
	span.SetTag("username", user)

	err := a.command(ctx, a.cfg.CommandTimeout, func(c *client.Client) error {
		return c.Login(user, password)
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to login as %s", user)
	}
	return nil
}

func (a *imapClient) Select(ctx context.Context, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPClient.Select")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)
	span.SetTag("folder", folder)

	err := a.command(ctx, a.cfg.CommandTimeout, func(c *client.Client) error {
		mbox, err := c.Select(folder, false)
		if err == nil {
			span.SetTag("messages", mbox.Messages)
		}
		return err
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to select %s", folder)
	}
	return nil
}

func (a *imapClient) State() enum.ConnState {
	if a.c == nil {
		return enum.ConnStateUnknown
	}
	return enum.ConnStateFromImap(a.c.State())
}

func (a *imapClient) Search(ctx context.Context) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPClient.Search")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	var seqNums []uint32
	err := a.command(ctx, a.cfg.CommandTimeout, func(c *client.Client) error {
		var err error
		seqNums, err = c.Search(criteria)
		return err
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mberrors.Classify("search", err)
	}

	sort.Slice(seqNums, func(i, j int) bool { return seqNums[i] < seqNums[j] })
	span.SetTag("unseen", len(seqNums))
	return seqNums, nil
}

func (a *imapClient) Fetch(ctx context.Context, seqNum uint32) (*dto.MessageRef, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPClient.Fetch")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)
	span.SetTag("seq", seqNum)

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNum)

	// BODY.PEEK[] leaves \Seen untouched
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem()}

	var raw []byte
	err := a.command(ctx, a.cfg.CommandTimeout, func(c *client.Client) error {
		messages := make(chan *imap.Message, 1)
		done := make(chan error, 1)
		go func() {
			done <- c.Fetch(seqSet, items, messages)
		}()

		var readErr error
		for msg := range messages {
			body := msg.GetBody(section)
			if body == nil || raw != nil {
				continue
			}
			raw, readErr = io.ReadAll(body)
		}
		if err := <-done; err != nil {
			return err
		}
		return readErr
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mberrors.Classify("fetch", err)
	}
	if raw == nil {
		err = errors.Errorf("server returned no body for message %d", seqNum)
		tracing.TraceErr(span, err)
		return nil, mberrors.Server("fetch", err)
	}

	span.SetTag("size", len(raw))
	return &dto.MessageRef{SeqNum: seqNum, Raw: raw}, nil
}

func (a *imapClient) Store(ctx context.Context, seqNum uint32) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPClient.Store")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)
	span.SetTag("seq", seqNum)

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNum)

	err := a.command(ctx, a.cfg.CommandTimeout, func(c *client.Client) error {
		return c.Store(seqSet, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.SeenFlag}, nil)
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return mberrors.Classify("store", err)
	}
	return nil
}

func (a *imapClient) IdleStart(ctx context.Context) (interfaces.IdleCommand, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPClient.IdleStart")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)

	if a.c == nil {
		return nil, mberrors.Connection("idle", client.ErrNotLoggedIn)
	}
	if a.c.State() != imap.SelectedState {
		return nil, mberrors.Server("idle", mberrors.ErrNotSelected)
	}

	cmd := &idleCommand{
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
		push:     a.push,
	}

	// IDLE runs until stopped; a command deadline would cut it short
	c := a.c
	c.Timeout = 0
	go func() {
		defer close(cmd.finished)
		cmd.err = c.Idle(cmd.stop, &client.IdleOptions{
			PollInterval: a.cfg.IdlePollInterval,
		})
	}()

	a.idle = cmd
	return cmd, nil
}

func (a *imapClient) HasPendingIdle() bool {
	return a.idle != nil && !a.idle.isFinished()
}

func (a *imapClient) Close(ctx context.Context) error {
	if a.c == nil || a.c.State() != imap.SelectedState {
		return nil
	}
	return a.bounded(ctx, "close", func(c *client.Client) error {
		return c.Close()
	})
}

func (a *imapClient) Logout(ctx context.Context) error {
	if a.c == nil || a.c.State() == imap.LogoutState {
		return nil
	}
	return a.bounded(ctx, "logout", func(c *client.Client) error {
		return c.Logout()
	})
}

// bounded runs a teardown command in the background and gives up after the
// disconnect timeout; Terminate releases anything left behind.
func (a *imapClient) bounded(ctx context.Context, op string, fn func(c *client.Client) error) error {
	c := a.c

	done := make(chan error, 1)
	go func() {
		done <- fn(c)
	}()

	timer := time.NewTimer(a.cfg.DisconnectTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return mberrors.Classify(op, err)
		}
		return nil
	case <-timer.C:
		return mberrors.Timeout(op, mberrors.ErrConnectionTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *imapClient) Terminate() error {
	if a.c == nil {
		return nil
	}
	err := a.c.Terminate()
	a.c = nil
	a.conn = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

type idleCommand struct {
	stop     chan struct{}
	stopOnce sync.Once
	finished chan struct{}
	err      error
	push     <-chan struct{}
}

func (i *idleCommand) WaitForPush(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-i.push:
		return true, nil
	case <-i.finished:
		if i.err != nil {
			return false, mberrors.Server("idle", i.err)
		}
		return false, mberrors.Server("idle", errors.New("idle ended unexpectedly"))
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (i *idleCommand) Done() {
	i.stopOnce.Do(func() {
		close(i.stop)
	})
}

func (i *idleCommand) Wait(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-i.finished:
		if i.err != nil {
			return mberrors.Server("idle", i.err)
		}
		return nil
	case <-timer.C:
		return mberrors.Connection("idle", mberrors.ErrIdleDoneTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *idleCommand) isFinished() bool {
	select {
	case <-i.finished:
		return true
	default:
		return false
	}
}
