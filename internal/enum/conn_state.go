package enum

import (
	"github.com/emersion/go-imap"
)

type ConnState string

const (
	ConnStateUnknown  ConnState = "UNKNOWN"
	ConnStateNotAuth  ConnState = "NOT-AUTH"
	ConnStateAuth     ConnState = "AUTH"
	ConnStateSelected ConnState = "SELECTED"
	ConnStateLogout   ConnState = "LOGOUT"
)

func (s ConnState) String() string {
	return string(s)
}

// ConnStateFromImap maps the go-imap connection state.
func ConnStateFromImap(state imap.ConnState) ConnState {
	switch state {
	case imap.NotAuthenticatedState:
		return ConnStateNotAuth
	case imap.AuthenticatedState:
		return ConnStateAuth
	case imap.SelectedState:
		return ConnStateSelected
	case imap.LogoutState:
		return ConnStateLogout
	default:
		return ConnStateUnknown
	}
}
