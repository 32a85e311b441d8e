package utils

import (
	"context"
)

type CustomContext struct {
	AppSource string
	Mailbox   string
	Folder    string
	SessionId string
}

type customContextKeyType string

const customContextKey customContextKeyType = "CUSTOM_CONTEXT"

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey, customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}

func GetMailboxFromContext(ctx context.Context) string {
	return GetContext(ctx).Mailbox
}

func GetSessionIdFromContext(ctx context.Context) string {
	return GetContext(ctx).SessionId
}

// WithSessionId returns a copy of the context carrying the given session id.
func WithSessionId(ctx context.Context, sessionId string) context.Context {
	current := *GetContext(ctx)
	current.SessionId = sessionId
	return WithCustomContext(ctx, &current)
}
