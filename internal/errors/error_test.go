package errors

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionFor(t *testing.T) {
	tests := []struct {
		kind   Kind
		action Action
	}{
		{KindTimeout, ActionRetry},
		{KindConnection, ActionRetry},
		{KindServer, ActionRetry},
		{KindCredentials, ActionFatal},
		{KindMailbox, ActionFatal},
		{KindUnknown, ActionFatal},
		{KindMalformedMessage, ActionRecover},
		{KindPublish, ActionRecover},
		{Kind(99), ActionFatal},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.action, ActionFor(tt.kind))
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := errors.Wrap(Credentials("login", errors.New("bad password")), "connect")

	assert.Equal(t, KindCredentials, KindOf(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestSessionError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Server("search", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "search: server error: boom", err.Error())
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify("op", nil))
	assert.Equal(t, KindTimeout, KindOf(Classify("fetch", context.DeadlineExceeded)))
	assert.Equal(t, KindConnection, KindOf(Classify("fetch", io.EOF)))
	assert.Equal(t, KindConnection, KindOf(Classify("store", errors.New("imap: connection closed"))))
	assert.Equal(t, KindServer, KindOf(Classify("fetch", errors.New("NO [SERVERBUG] oops"))))

	original := Mailbox("select", errors.New("no such mailbox"))
	require.Equal(t, KindMailbox, KindOf(Classify("select", original)))
}
