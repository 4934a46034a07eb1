package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestNewFileExporter_CreatesParentDirectories(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "nested", "dir", "traces.jsonl")

	exporter, err := NewFileExporter(tracePath)
	require.NoError(t, err)

	_, err = os.Stat(tracePath)
	require.NoError(t, err, "trace file should be created with parent dirs")
	require.NoError(t, exporter.Shutdown(context.Background()))
}

func TestFileExporter_ExportSpans(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")
	exporter, err := NewFileExporter(tracePath)
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	ctx, parent := Start(context.Background(), tracer, SpanPass, attribute.String(AttrMode, "automatic"))
	_, child := Start(ctx, tracer, SpanApply, attribute.String(AttrDomain, "multi"))
	child.AddEvent(EventRetry, trace.WithAttributes(attribute.String(AttrNumber, "2025-004")))
	End(child, errors.New("constraint"))
	End(parent, nil)

	require.NoError(t, exporter.ExportSpans(context.Background(), recorder.Ended()))
	require.NoError(t, exporter.Shutdown(context.Background()))

	f, err := os.Open(tracePath)
	require.NoError(t, err)
	defer f.Close()

	var records []SpanRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)

	// Children end first.
	require.Equal(t, SpanApply, records[0].Name)
	require.Equal(t, "ERROR", records[0].Status)
	require.Equal(t, "constraint", records[0].StatusMsg)
	require.Equal(t, records[1].SpanID, records[0].ParentSpanID)
	require.Equal(t, "multi", records[0].Attributes[AttrDomain])
	require.Len(t, records[0].Events, 1)
	require.Equal(t, EventRetry, records[0].Events[0].Name)

	require.Equal(t, SpanPass, records[1].Name)
	require.Equal(t, "OK", records[1].Status)
	require.Empty(t, records[1].ParentSpanID)
}

func TestFileExporter_ExportAfterShutdown(t *testing.T) {
	exporter, err := NewFileExporter(filepath.Join(t.TempDir(), "traces.jsonl"))
	require.NoError(t, err)
	require.NoError(t, exporter.Shutdown(context.Background()))
	require.NoError(t, exporter.Shutdown(context.Background()), "double shutdown is safe")

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "late")
	span.End()
	require.NoError(t, exporter.ExportSpans(context.Background(), recorder.Ended()))
}
