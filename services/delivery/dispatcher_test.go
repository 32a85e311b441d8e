package delivery

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/dto"
	mailbridge_errors "github.com/customeros/mailbridge/errors"
	"github.com/customeros/mailbridge/internal/enum"
	mberrors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/logger"
)

type fakeSink struct {
	name  enum.SinkName
	err   error
	calls atomic.Int32
	seen  atomic.Pointer[dto.NormalizedMessage]
}

func (f *fakeSink) Name() enum.SinkName { return f.name }

func (f *fakeSink) Publish(_ context.Context, msg *dto.NormalizedMessage) (*dto.DeliveryReceipt, error) {
	f.calls.Add(1)
	f.seen.Store(msg)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.DeliveryReceipt{ID: "r1", Sink: f.name}, nil
}

func testLogger() logger.Logger {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()
	return log
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	slack := &fakeSink{name: enum.SinkSlack}
	events := &fakeSink{name: enum.SinkEvents}
	d := NewDispatcher(testLogger(), nil, slack, events)

	require.NoError(t, d.Deliver(context.Background(), &dto.NormalizedMessage{MessageID: "m1"}))
	assert.EqualValues(t, 1, slack.calls.Load())
	assert.EqualValues(t, 1, events.calls.Load())
}

func TestDispatcher_SinksKeepsConfiguredOrder(t *testing.T) {
	slack := &fakeSink{name: enum.SinkSlack}
	archive := &fakeSink{name: enum.SinkArchive}
	d := NewDispatcher(testLogger(), nil, slack, archive)

	sinks := d.Sinks()
	require.Len(t, sinks, 2)
	assert.Equal(t, enum.SinkSlack, sinks[0].Name())
	assert.Equal(t, enum.SinkArchive, sinks[1].Name())
}

func TestDispatcher_FailingSinkDoesNotStopOthers(t *testing.T) {
	slack := &fakeSink{name: enum.SinkSlack, err: errors.New("rate_limited")}
	events := &fakeSink{name: enum.SinkEvents}
	archive := &fakeSink{name: enum.SinkArchive, err: errors.New("bucket missing")}
	d := NewDispatcher(testLogger(), nil, slack, events, archive)

	err := d.Deliver(context.Background(), &dto.NormalizedMessage{MessageID: "m1"})
	require.Error(t, err)
	assert.Equal(t, mberrors.KindPublish, mberrors.KindOf(err))
	assert.Contains(t, err.Error(), "sink slack: rate_limited")
	assert.Contains(t, err.Error(), "sink archive: bucket missing")
	assert.EqualValues(t, 1, events.calls.Load())
}

func TestDispatcher_NoSinks(t *testing.T) {
	err := NewDispatcher(testLogger(), nil).Deliver(context.Background(), &dto.NormalizedMessage{})
	require.Error(t, err)
	assert.ErrorIs(t, err, mailbridge_errors.ErrNoSinks)
}

type fakeFilter struct{}

func (fakeFilter) ScanEmail(context.Context, *dto.NormalizedMessage) (enum.EmailClassification, string) {
	return enum.EmailAutoResponder, "X-AUTOREPLY header present"
}

func TestDispatcher_ClassifiesWithoutMutatingInput(t *testing.T) {
	slack := &fakeSink{name: enum.SinkSlack}
	d := NewDispatcher(testLogger(), fakeFilter{}, slack)

	msg := &dto.NormalizedMessage{MessageID: "m1"}
	require.NoError(t, d.Deliver(context.Background(), msg))

	delivered := slack.seen.Load()
	require.NotNil(t, delivered)
	assert.Equal(t, enum.EmailAutoResponder, delivered.Classification)
	assert.Equal(t, "X-AUTOREPLY header present", delivered.ClassificationReason)
	assert.Empty(t, msg.Classification)
}
