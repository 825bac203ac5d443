package chunk

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
	metricsOnce       sync.Once
	metricsMu         sync.Mutex
	metricsInitErr    error
	splitDurationHist metric.Float64Histogram
	chunkCounter      metric.Int64Counter
	chunkTokensHist   metric.Float64Histogram
)

// recordSplit is best-effort instrumentation; it never fails a split call.
func recordSplit(ctx context.Context, strategy string, chunks []Chunk, d time.Duration) {
	if err := ensureMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("strategy", strategy))
	if splitDurationHist != nil {
		splitDurationHist.Record(ctx, d.Seconds(), attrs)
	}
	if chunkCounter != nil && len(chunks) > 0 {
		chunkCounter.Add(ctx, int64(len(chunks)), attrs)
	}
	if chunkTokensHist != nil {
		for i := range chunks {
			chunkTokensHist.Record(ctx, float64(chunks[i].TokenCount), attrs)
		}
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("chunkforge.chunk")
		metricsInitErr = initSplitMetrics(meter)
	})
	return metricsInitErr
}

func initSplitMetrics(meter metric.Meter) error {
	var err error
	splitDurationHist, err = meter.Float64Histogram(
		appmetrics.MetricNameWithSubsystem("chunk", "split_duration_seconds"),
		metric.WithDescription("Latency of single-document split calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(.0005, .001, .005, .01, .05, .1, .5, 1, 5),
	)
	if err != nil {
		return err
	}
	chunkCounter, err = meter.Int64Counter(
		appmetrics.MetricNameWithSubsystem("chunk", "chunks_total"),
		metric.WithDescription("Number of chunks produced"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	chunkTokensHist, err = meter.Float64Histogram(
		appmetrics.MetricNameWithSubsystem("chunk", "tokens_per_chunk"),
		metric.WithDescription("Token counts of emitted chunks"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(10, 25, 50, 100, 200, 300, 500, 1000),
	)
	return err
}

// ResetMetricsForTesting clears instrument state between test runs.
func ResetMetricsForTesting() {
	metricsMu.Lock()
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	splitDurationHist = nil
	chunkCounter = nil
	chunkTokensHist = nil
	metricsMu.Unlock()
}
