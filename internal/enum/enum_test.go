package enum

import (
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
)

func TestConnStateFromImap(t *testing.T) {
	assert.Equal(t, ConnStateNotAuth, ConnStateFromImap(imap.NotAuthenticatedState))
	assert.Equal(t, ConnStateAuth, ConnStateFromImap(imap.AuthenticatedState))
	assert.Equal(t, ConnStateSelected, ConnStateFromImap(imap.SelectedState))
	assert.Equal(t, ConnStateLogout, ConnStateFromImap(imap.LogoutState))
	assert.Equal(t, ConnStateUnknown, ConnStateFromImap(imap.ConnectingState))
}
