// Package exporters holds the span exporters the tracing setup chooses
// from: OTLP when a collector endpoint is configured, console otherwise.
package exporters

import (
	"context"

	"go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter is the fallback exporter used when tracing is enabled but
// no collector endpoint is configured. Spans are accepted and discarded, so
// span creation and trace id propagation keep working locally without a
// collector running.
type ConsoleExporter struct{}

func (c *ConsoleExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (c *ConsoleExporter) Shutdown(ctx context.Context) error {
	return nil
}
