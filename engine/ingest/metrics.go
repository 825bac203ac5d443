package ingest

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	appmetrics "github.com/chunkforge/chunkforge/pkg/metrics"
)

var (
	metricsOnce    sync.Once
	metricsMu      sync.Mutex
	metricsInitErr error

	pipelineLatency    metric.Float64Histogram
	documentsCounter   metric.Int64Counter
	chunksCounter      metric.Int64Counter
	batchSizeHistogram metric.Int64Histogram
	errorsCounter      metric.Int64Counter
)

// recordRun is best-effort instrumentation; a failed meter never fails a run.
func recordRun(ctx context.Context, strategy Strategy, documents, chunks int, d time.Duration) {
	if err := ensureMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("strategy", string(strategy)))
	if pipelineLatency != nil {
		pipelineLatency.Record(ctx, d.Seconds(), attrs)
	}
	if documentsCounter != nil && documents > 0 {
		documentsCounter.Add(ctx, int64(documents), attrs)
	}
	if chunksCounter != nil && chunks > 0 {
		chunksCounter.Add(ctx, int64(chunks), attrs)
	}
}

func recordBatch(ctx context.Context, size int) {
	if err := ensureMetrics(); err != nil {
		return
	}
	if batchSizeHistogram != nil {
		batchSizeHistogram.Record(ctx, int64(size))
	}
}

func recordPipelineError(ctx context.Context, stage string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	if errorsCounter != nil {
		errorsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("chunkforge.ingest")
		metricsInitErr = initPipelineMetrics(meter)
	})
	return metricsInitErr
}

func initPipelineMetrics(meter metric.Meter) error {
	var err error
	pipelineLatency, err = meter.Float64Histogram(
		appmetrics.MetricNameWithSubsystem("ingest", "pipeline_duration_seconds"),
		metric.WithDescription("End to end latency of ingestion runs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(.1, .5, 1, 5, 15, 60, 300),
	)
	if err != nil {
		return err
	}
	documentsCounter, err = meter.Int64Counter(
		appmetrics.MetricNameWithSubsystem("ingest", "documents_total"),
		metric.WithDescription("Documents loaded from source files"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	chunksCounter, err = meter.Int64Counter(
		appmetrics.MetricNameWithSubsystem("ingest", "chunks_total"),
		metric.WithDescription("Chunks produced by ingestion runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	batchSizeHistogram, err = meter.Int64Histogram(
		appmetrics.MetricNameWithSubsystem("ingest", "batch_size"),
		metric.WithDescription("Chunk count per embed and upsert batch"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(1, 8, 16, 32, 64, 128),
	)
	if err != nil {
		return err
	}
	errorsCounter, err = meter.Int64Counter(
		appmetrics.MetricNameWithSubsystem("ingest", "errors_total"),
		metric.WithDescription("Ingestion failures by stage"),
		metric.WithUnit("1"),
	)
	return err
}

// ResetMetricsForTesting clears instrument state between test runs.
func ResetMetricsForTesting() {
	metricsMu.Lock()
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	pipelineLatency = nil
	documentsCounter = nil
	chunksCounter = nil
	batchSizeHistogram = nil
	errorsCounter = nil
	metricsMu.Unlock()
}
