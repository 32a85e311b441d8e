package events

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/internal/utils"
)

// EmailReceivedSink announces every delivered message as an EMAIL_RECEIVED
// event. Attachment content stays out of the payload; only names and sizes travel.
type EmailReceivedSink struct {
	publisher interfaces.EventPublisher
}

func NewEmailReceivedSink(publisher interfaces.EventPublisher) *EmailReceivedSink {
	return &EmailReceivedSink{publisher: publisher}
}

func (s *EmailReceivedSink) Name() enum.SinkName {
	return enum.SinkEvents
}

func (s *EmailReceivedSink) Publish(ctx context.Context, msg *dto.NormalizedMessage) (*dto.DeliveryReceipt, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailReceivedSink.Publish")
	defer span.Finish()
	tracing.SetDefaultPublisherSpanTags(ctx, span)

	entityId := msg.MessageID
	if entityId == "" {
		entityId = utils.GenerateNanoIDWithPrefix("email", 16)
	}
	tracing.TagEntity(span, entityId)

	event := NewEmailReceived(ctx, msg)
	tracing.LogObjectAsJson(span, "event", event)
	if err := s.publisher.PublishDirectEvent(ctx, entityId, dto.EventTypeEmailReceived, event); err != nil {
		tracing.TraceErr(span, err)
		return nil, mberrors.Publish("events.publish", err)
	}

	return &dto.DeliveryReceipt{
		ID:   entityId,
		Sink: enum.SinkEvents,
	}, nil
}

func NewEmailReceived(ctx context.Context, msg *dto.NormalizedMessage) dto.EmailReceived {
	customContext := utils.GetContext(ctx)

	event := dto.EmailReceived{
		Mailbox:      customContext.Mailbox,
		Folder:       customContext.Folder,
		MessageID:    msg.MessageID,
		Sender:       msg.Sender,
		SenderDomain: utils.ExtractDomainFromEmail(msg.Sender),
		Recipients:   msg.Recipients,
		Subject:      msg.Subject,
		Timestamp:    msg.Timestamp,
		Body:         msg.Body,

		Classification:       msg.Classification.String(),
		ClassificationReason: msg.ClassificationReason,
	}
	for _, attachment := range msg.Attachments {
		event.Attachments = append(event.Attachments, dto.EmailReceivedAttachment{
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			Size:        len(attachment.Content),
		})
	}
	return event
}
