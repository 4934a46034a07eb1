package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanScan      = "registry.scan"
	SpanListStore = "registry.list_numbers"
	SpanAllocate  = "allocator.allocate"
	SpanIssue     = "allocator.issue"
	SpanResolve   = "resolver.resolve"
	SpanPass      = "resolver.pass"
	SpanApply     = "resolver.apply_domain"
)

// Attribute keys.
const (
	AttrDomain        = "docnum.domain"
	AttrYear          = "docnum.year"
	AttrNumber        = "docnum.number"
	AttrProvisional   = "docnum.provisional"
	AttrGlobal        = "docnum.global"
	AttrMode          = "docnum.resolve.mode"
	AttrPassID        = "docnum.resolve.pass_id"
	AttrConflicts     = "docnum.conflicts"
	AttrResolved      = "docnum.resolved"
	AttrUnresolved    = "docnum.unresolved"
	AttrRecords       = "docnum.records"
	AttrUnavailable   = "docnum.unavailable_domains"
	AttrReassignments = "docnum.reassignments"
)

// Event names.
const (
	EventStoreUnavailable = "store.unavailable"
	EventRetry            = "write.retry"
	EventFallback         = "allocator.fallback"
)

// Start opens an internal span with attrs.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err on span, sets its status and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
