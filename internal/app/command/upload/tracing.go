package upload

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceScope = "upload-notifier.pipeline"

	traceSpanProcess  = "upload.process"
	traceSpanIssue    = "upload.issue"
	traceSpanRecord   = "upload.record"
	traceSpanDispatch = "upload.dispatch"

	traceAttrInvocationID = "upload.invocation_id"
	traceAttrBucket       = "upload.bucket"
	traceAttrKey          = "upload.key"
	traceAttrStatus       = "upload.status"
	traceAttrErrorCode    = "upload.error_code"
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(traceScope).Start(ctx, name, trace.WithAttributes(attrs...))
}

func markSpanResult(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(traceAttrStatus, "error"))
		return
	}
	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.String(traceAttrStatus, "success"))
}
