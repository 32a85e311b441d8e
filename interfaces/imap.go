package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/enum"
)

// IMAPClient is a single IMAP connection. Commands must not be issued concurrently.
type IMAPClient interface {
	Connect(ctx context.Context) error
	Login(ctx context.Context, user, password string) error
	Select(ctx context.Context, folder string) error
	State() enum.ConnState

	// Search returns the sequence numbers of UNSEEN messages in ascending order.
	Search(ctx context.Context) ([]uint32, error)
	// Fetch retrieves the full raw message without setting \Seen.
	Fetch(ctx context.Context, seqNum uint32) (*dto.MessageRef, error)
	// Store adds \Seen to the message.
	Store(ctx context.Context, seqNum uint32) error

	IdleStart(ctx context.Context) (IdleCommand, error)
	HasPendingIdle() bool

	Close(ctx context.Context) error
	Logout(ctx context.Context) error
	Terminate() error
}

type IdleCommand interface {
	// WaitForPush reports whether the server pushed an update within timeout.
	WaitForPush(ctx context.Context, timeout time.Duration) (bool, error)
	// Done asks the server to end IDLE. Safe to call more than once.
	Done()
	// Wait blocks until the IDLE command has completed.
	Wait(ctx context.Context, timeout time.Duration) error
}

type SessionManager interface {
	Run(ctx context.Context, deliver DeliverFunc) error
	Status() SessionStatus
}

type SessionStatus struct {
	Connected    bool
	State        enum.ConnState
	Phase        enum.SessionPhase
	SessionId    string
	SessionStart time.Time
	LastPoll     time.Time
	Delivered    int64
	Failed       int64
	Skipped      int64
	LastError    string
}
