package interfaces

import (
	"context"
)

type EventPublisher interface {
	PublishDirectEvent(ctx context.Context, entityId string, eventType string, message interface{}) error
	Close() error
}
