package tracing

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"

	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/utils"
)

const (
	SpanTagMailbox   = "mailbox"
	SpanTagFolder    = "folder"
	SpanTagSessionId = "session-id"
	SpanTagEntityId  = "entity-id"
	SpanTagComponent = "component"
)

const (
	SpanTagComponentService    = "service"
	SpanTagComponentImap       = "imap"
	SpanTagComponentSupervisor = "supervisor"
	SpanTagComponentPublisher  = "publisher"
	SpanTagComponentCronJob    = "cronJob"
)

func StartTracerSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	serverSpan := opentracing.GlobalTracer().StartSpan(operationName)
	return serverSpan, opentracing.ContextWithSpan(ctx, serverSpan)
}

func setDefaultSpanTags(ctx context.Context, span opentracing.Span) {
	customContext := utils.GetContext(ctx)
	if customContext.Mailbox != "" {
		span.SetTag(SpanTagMailbox, customContext.Mailbox)
	}
	if customContext.Folder != "" {
		span.SetTag(SpanTagFolder, customContext.Folder)
	}
	if customContext.SessionId != "" {
		span.SetTag(SpanTagSessionId, customContext.SessionId)
	}
}

func SetDefaultServiceSpanTags(ctx context.Context, span opentracing.Span) {
	setDefaultSpanTags(ctx, span)
	TagComponentService(span)
}

func SetDefaultImapSpanTags(ctx context.Context, span opentracing.Span) {
	setDefaultSpanTags(ctx, span)
	TagComponentImap(span)
}

func SetDefaultPublisherSpanTags(ctx context.Context, span opentracing.Span) {
	setDefaultSpanTags(ctx, span)
	TagComponentPublisher(span)
}

func TraceErr(span opentracing.Span, err error, fields ...log.Field) {
	if span == nil || err == nil {
		return
	}
	ext.LogError(span, err, fields...)
}

func LogObjectAsJson(span opentracing.Span, name string, object any) {
	if object == nil {
		span.LogFields(log.String(name, "nil"))
		return
	}
	jsonObject, err := json.Marshal(object)
	if err == nil {
		span.LogFields(log.String(name, string(jsonObject)))
	} else {
		span.LogFields(log.Object(name, object))
	}
}

func InjectTextMapCarrier(spanCtx opentracing.SpanContext) (opentracing.TextMapCarrier, error) {
	m := make(opentracing.TextMapCarrier)
	if err := opentracing.GlobalTracer().Inject(spanCtx, opentracing.TextMap, m); err != nil {
		return nil, err
	}
	return m, nil
}

func ExtractTextMapCarrier(spanCtx opentracing.SpanContext) opentracing.TextMapCarrier {
	textMapCarrier, err := InjectTextMapCarrier(spanCtx)
	if err != nil {
		return make(opentracing.TextMapCarrier)
	}
	return textMapCarrier
}

func TagEntity(span opentracing.Span, entityId string) {
	if entityId != "" {
		span.SetTag(SpanTagEntityId, entityId)
	}
}

func TagComponentService(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentService)
}

func TagComponentImap(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentImap)
}

func TagComponentSupervisor(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentSupervisor)
}

func TagComponentPublisher(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentPublisher)
}

func TagComponentCronJob(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentCronJob)
}

// RecoverAndLogToJaeger recovers a panic in the calling goroutine and reports it.
func RecoverAndLogToJaeger(appLogger logger.Logger) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan("panic-recovery")
		defer span.Finish()

		stack := string(debug.Stack())
		span.LogKV(
			"event", "error",
			"error.object", r,
			"stack", stack,
		)
		ext.Error.Set(span, true)
		appLogger.Errorf("Recovered from panic: %v\n%s", r, stack)
	}
}
