package errors

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/emersion/go-imap/client"
	"github.com/pkg/errors"
)

var (
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrIdleDoneTimeout   = errors.New("idle did not terminate in time")
	ErrNotSelected       = errors.New("no mailbox selected")
	ErrInvalidDate       = errors.New("message date missing or unparsable")
)

// Kind classifies a failure for the restart policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindConnection
	KindCredentials
	KindMailbox
	KindServer
	KindMalformedMessage
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindCredentials:
		return "credentials"
	case KindMailbox:
		return "mailbox"
	case KindServer:
		return "server"
	case KindMalformedMessage:
		return "malformed_message"
	case KindPublish:
		return "publish"
	default:
		return "unknown"
	}
}

type Action int

const (
	ActionFatal Action = iota
	ActionRetry
	ActionRecover
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionRecover:
		return "recover"
	default:
		return "fatal"
	}
}

var actions = map[Kind]Action{
	KindTimeout:          ActionRetry,
	KindConnection:       ActionRetry,
	KindServer:           ActionRetry,
	KindCredentials:      ActionFatal,
	KindMailbox:          ActionFatal,
	KindUnknown:          ActionFatal,
	KindMalformedMessage: ActionRecover,
	KindPublish:          ActionRecover,
}

func ActionFor(kind Kind) Action {
	if action, ok := actions[kind]; ok {
		return action
	}
	return ActionFatal
}

// SessionError is a classified failure raised by the session or adapter.
type SessionError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, err error) *SessionError {
	return &SessionError{Kind: kind, Op: op, Err: err}
}

func Timeout(op string, err error) *SessionError {
	return New(KindTimeout, op, err)
}

func Connection(op string, err error) *SessionError {
	return New(KindConnection, op, err)
}

func Credentials(op string, err error) *SessionError {
	return New(KindCredentials, op, err)
}

func Mailbox(op string, err error) *SessionError {
	return New(KindMailbox, op, err)
}

func Server(op string, err error) *SessionError {
	return New(KindServer, op, err)
}

func MalformedMessage(op string, err error) *SessionError {
	return New(KindMalformedMessage, op, err)
}

func Publish(op string, err error) *SessionError {
	return New(KindPublish, op, err)
}

// KindOf returns the kind of the first SessionError in err's chain.
func KindOf(err error) Kind {
	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		return sessionErr.Kind
	}
	return KindUnknown
}

func IsRetryable(err error) bool {
	return err != nil && ActionFor(KindOf(err)) == ActionRetry
}

// IsTimeout reports deadline expiry on a context or a network operation.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, ErrConnectionTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTransport reports failures of the underlying connection rather than the protocol.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, client.ErrAlreadyLoggedOut) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	// go-imap reports a dropped connection as a bare string error
	return strings.Contains(err.Error(), "connection closed")
}

// Classify maps a raw protocol error to a SessionError. Timeouts win, then
// transport failures, everything else is a server-side protocol failure.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		return err
	}
	switch {
	case IsTimeout(err):
		return Timeout(op, err)
	case IsTransport(err):
		return Connection(op, err)
	default:
		return Server(op, err)
	}
}
