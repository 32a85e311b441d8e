package events

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/customeros/mailbridge/internal/logger"
)

type EventsService struct {
	Publisher *RabbitMQPublisher
	Sink      *EmailReceivedSink
}

func NewEventsService(rabbitmqURL string, log logger.Logger, publisherConfig *PublisherConfig) (*EventsService, error) {
	publisher, err := NewRabbitMQPublisher(rabbitmqURL, log, publisherConfig)
	if err != nil {
		return nil, err
	}

	return &EventsService{
		Publisher: publisher,
		Sink:      NewEmailReceivedSink(publisher),
	}, nil
}

func (s *EventsService) Close() error {
	var err error

	if s.Publisher != nil {
		err = multierr.Append(err, s.Publisher.Close())
	}

	return errors.Wrap(err, "errors closing events service")
}
