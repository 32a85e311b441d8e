package imap

import (
	"sync"
	"time"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
)

type statusTracker struct {
	mu     sync.RWMutex
	status interfaces.SessionStatus
}

func newStatusTracker() *statusTracker {
	return &statusTracker{
		status: interfaces.SessionStatus{
			State: enum.ConnStateUnknown,
			Phase: enum.SessionPhaseStopped,
		},
	}
}

func (t *statusTracker) snapshot() interfaces.SessionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *statusTracker) update(fn func(status *interfaces.SessionStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.status)
}

func (t *statusTracker) setPhase(phase enum.SessionPhase) {
	t.update(func(status *interfaces.SessionStatus) {
		status.Phase = phase
	})
}

func (t *statusTracker) connected(sessionId string, start time.Time, state enum.ConnState) {
	t.update(func(status *interfaces.SessionStatus) {
		status.Connected = true
		status.State = state
		status.SessionId = sessionId
		status.SessionStart = start
	})
}

func (t *statusTracker) disconnected() {
	t.update(func(status *interfaces.SessionStatus) {
		status.Connected = false
		status.State = enum.ConnStateLogout
		status.Phase = enum.SessionPhaseDisconnected
	})
}

func (t *statusTracker) polled(at time.Time) {
	t.update(func(status *interfaces.SessionStatus) {
		status.LastPoll = at
	})
}

func (t *statusTracker) delivered() {
	t.update(func(status *interfaces.SessionStatus) {
		status.Delivered++
	})
}

func (t *statusTracker) failed() {
	t.update(func(status *interfaces.SessionStatus) {
		status.Failed++
	})
}

func (t *statusTracker) skipped() {
	t.update(func(status *interfaces.SessionStatus) {
		status.Skipped++
	})
}

func (t *statusTracker) recordError(err error) {
	t.update(func(status *interfaces.SessionStatus) {
		status.LastError = err.Error()
	})
}
