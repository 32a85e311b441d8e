package interfaces

import (
	"context"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/enum"
)

// DeliverFunc hands one message to the outside world.
type DeliverFunc func(ctx context.Context, msg *dto.NormalizedMessage) error

type Publisher interface {
	Name() enum.SinkName
	Publish(ctx context.Context, msg *dto.NormalizedMessage) (*dto.DeliveryReceipt, error)
}
