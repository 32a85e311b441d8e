package delivery

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/customeros/mailbridge/dto"
	mailbridge_errors "github.com/customeros/mailbridge/errors"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
)

// Dispatcher hands a message to every configured sink concurrently.
// A failing sink does not stop the others.
type Dispatcher struct {
	sinks  []interfaces.Publisher
	filter interfaces.EmailFilterService
	log    logger.Logger
}

// NewDispatcher labels messages with filter before fan-out; filter may be nil.
func NewDispatcher(log logger.Logger, filter interfaces.EmailFilterService, sinks ...interfaces.Publisher) *Dispatcher {
	return &Dispatcher{sinks: sinks, filter: filter, log: log}
}

func (d *Dispatcher) Sinks() []interfaces.Publisher {
	return d.sinks
}

// Deliver satisfies interfaces.DeliverFunc.
func (d *Dispatcher) Deliver(ctx context.Context, msg *dto.NormalizedMessage) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Dispatcher.Deliver")
	defer span.Finish()
	tracing.SetDefaultPublisherSpanTags(ctx, span)
	tracing.TagEntity(span, msg.MessageID)

	if len(d.sinks) == 0 {
		return mberrors.Publish("deliver", mailbridge_errors.ErrNoSinks)
	}

	if d.filter != nil {
		classified := *msg
		classified.Classification, classified.ClassificationReason = d.filter.ScanEmail(ctx, msg)
		msg = &classified
		span.SetTag("classification", msg.Classification.String())
		if msg.Classification != enum.EmailOK {
			d.log.Infof("Message %s classified as %s: %s", msg.MessageID, msg.Classification, msg.ClassificationReason)
		}
	}

	errs := make([]error, len(d.sinks))
	var g errgroup.Group
	for i, sink := range d.sinks {
		i, sink := i, sink
		g.Go(func() error {
			receipt, err := sink.Publish(ctx, msg)
			if err != nil {
				d.log.Errorf("Sink %s failed for message %s: %v", sink.Name(), msg.MessageID, err)
				errs[i] = errors.Wrapf(err, "sink %s", sink.Name())
				return nil
			}
			if receipt != nil {
				d.log.Debugf("Sink %s accepted message %s as %s", sink.Name(), msg.MessageID, receipt.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := multierr.Combine(errs...); err != nil {
		tracing.TraceErr(span, err)
		return mberrors.Publish("deliver", err)
	}
	return nil
}
