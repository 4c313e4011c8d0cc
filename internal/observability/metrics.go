package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricEventsTotal   = "trustfang.events.total"
	metricEventsSkipped = "trustfang.events.skipped"
	metricBatchDuration = "trustfang.batch.duration.seconds"

	attrSource = "source"
)

// batchBucketBoundaries covers sub-millisecond in-memory batches up to
// multi-second pages fetched over the network.
var batchBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// IngestMetrics holds the OTel instruments for the event ingestion path.
type IngestMetrics struct {
	eventsTotal   metric.Int64Counter
	eventsSkipped metric.Int64Counter
	batchDuration metric.Float64Histogram
}

// NewIngestMetrics creates ingestion metric instruments from the given meter.
func NewIngestMetrics(mt metric.Meter) (*IngestMetrics, error) {
	b := newMetricBuilder(mt)

	im := &IngestMetrics{
		eventsTotal:   b.counter(metricEventsTotal, "Total commit events accepted", "{event}"),
		eventsSkipped: b.counter(metricEventsSkipped, "Malformed events skipped", "{event}"),
		batchDuration: b.histogram(metricBatchDuration, "Batch ingestion duration in seconds", "s", batchBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return im, nil
}

// RecordBatch records one ingested batch: accepted and skipped event
// counts plus processing duration, attributed to the event source kind.
func (im *IngestMetrics) RecordBatch(ctx context.Context, source string, accepted, skipped int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrSource, source))

	im.eventsTotal.Add(ctx, int64(accepted), attrs)
	im.eventsSkipped.Add(ctx, int64(skipped), attrs)
	im.batchDuration.Record(ctx, duration.Seconds(), attrs)
}
