package vectordb

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
	metricsOnce        sync.Once
	metricsMu          sync.Mutex
	metricsInitErr     error
	searchDurationHist metric.Float64Histogram
	searchResultsHist  metric.Float64Histogram
	storeErrorCounter  metric.Int64Counter
)

// instrumented wraps a concrete Store so every backend reports the same
// operation metrics without duplicating call sites.
type instrumented struct {
	inner    Store
	provider string
}

func newInstrumentedStore(store Store, provider Provider) Store {
	return &instrumented{inner: store, provider: string(provider)}
}

func (s *instrumented) Upsert(ctx context.Context, records []Record) error {
	err := s.inner.Upsert(ctx, records)
	if err != nil {
		recordStoreError(ctx, s.provider, "upsert")
	}
	return err
}

func (s *instrumented) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	start := time.Now()
	matches, err := s.inner.Search(ctx, query, opts)
	if err != nil {
		recordStoreError(ctx, s.provider, "search")
		return nil, err
	}
	recordSearch(ctx, s.provider, len(matches), time.Since(start))
	return matches, nil
}

func (s *instrumented) Delete(ctx context.Context, filter Filter) error {
	err := s.inner.Delete(ctx, filter)
	if err != nil {
		recordStoreError(ctx, s.provider, "delete")
	}
	return err
}

func (s *instrumented) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}

// recordSearch is best-effort; instrumentation never fails a query.
func recordSearch(ctx context.Context, provider string, results int, d time.Duration) {
	if err := ensureMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	if searchDurationHist != nil {
		searchDurationHist.Record(ctx, d.Seconds(), attrs)
	}
	if searchResultsHist != nil {
		searchResultsHist.Record(ctx, float64(results), attrs)
	}
}

func recordStoreError(ctx context.Context, provider, op string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	if storeErrorCounter != nil {
		storeErrorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("operation", op),
		))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("chunkforge.vectordb")
		metricsInitErr = initStoreMetrics(meter)
	})
	return metricsInitErr
}

func initStoreMetrics(meter metric.Meter) error {
	var err error
	searchDurationHist, err = meter.Float64Histogram(
		appmetrics.MetricNameWithSubsystem("vectordb", "search_duration_seconds"),
		metric.WithDescription("Latency of similarity searches"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5),
	)
	if err != nil {
		return err
	}
	searchResultsHist, err = meter.Float64Histogram(
		appmetrics.MetricNameWithSubsystem("vectordb", "results_per_search"),
		metric.WithDescription("Number of matches returned per search"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50, 100),
	)
	if err != nil {
		return err
	}
	storeErrorCounter, err = meter.Int64Counter(
		appmetrics.MetricNameWithSubsystem("vectordb", "store_errors_total"),
		metric.WithDescription("Vector store operation failures"),
		metric.WithUnit("1"),
	)
	return err
}

// ResetMetricsForTesting clears instrument state between test runs.
func ResetMetricsForTesting() {
	metricsMu.Lock()
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	searchDurationHist = nil
	searchResultsHist = nil
	storeErrorCounter = nil
	metricsMu.Unlock()
}
