package mailbridge_errors

import "errors"

var (
	ErrSessionReturned = errors.New("session returned without error")
	ErrNoSinks         = errors.New("no delivery sinks configured")
	ErrEmptyMessage    = errors.New("empty message")
)
