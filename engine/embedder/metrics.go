package embedder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	appmetrics "github.com/chunkforge/chunkforge/pkg/metrics"
)

const (
	errorCategoryRateLimit    = "rate_limit"
	errorCategoryAuth         = "auth"
	errorCategoryInvalidInput = "invalid_input"
	errorCategoryServer       = "server_error"
)

var (
	metricsOnce      sync.Once
	metricsMu        sync.Mutex
	metricsInitErr   error
	generationHist   metric.Float64Histogram
	textsCounter     metric.Int64Counter
	cacheHitCounter  metric.Int64Counter
	cacheMissCounter metric.Int64Counter
	embedErrCounter  metric.Int64Counter
)

// categorizeError approximates a standard error bucket from the provider's
// error text. Providers rarely expose typed errors for these cases.
func categorizeError(err error) string {
	if err == nil {
		return errorCategoryServer
	}
	lower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorCategoryServer
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "429"):
		return errorCategoryRateLimit
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "forbidden"), strings.Contains(lower, "auth"):
		return errorCategoryAuth
	case strings.Contains(lower, "invalid"),
		strings.Contains(lower, "bad request"),
		strings.Contains(lower, "422"),
		strings.Contains(lower, "400"):
		return errorCategoryInvalidInput
	default:
		return errorCategoryServer
	}
}

func recordGeneration(ctx context.Context, provider, model string, texts int, d time.Duration) {
	if err := ensureMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	)
	if generationHist != nil {
		generationHist.Record(ctx, d.Seconds(), attrs)
	}
	if textsCounter != nil && texts > 0 {
		textsCounter.Add(ctx, int64(texts), attrs)
	}
}

func recordCacheHit(ctx context.Context, provider, layer string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	if cacheHitCounter != nil {
		cacheHitCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("layer", layer),
		))
	}
}

func recordCacheMiss(ctx context.Context, provider string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	if cacheMissCounter != nil {
		cacheMissCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
	}
}

func recordEmbedError(ctx context.Context, provider, model, category string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	if embedErrCounter != nil {
		embedErrCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("model", model),
			attribute.String("category", category),
		))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("chunkforge.embedder")
		metricsInitErr = initEmbedderMetrics(meter)
	})
	return metricsInitErr
}

func initEmbedderMetrics(meter metric.Meter) error {
	var err error
	generationHist, err = meter.Float64Histogram(
		appmetrics.MetricNameWithSubsystem("embedder", "generation_duration_seconds"),
		metric.WithDescription("Latency of provider embedding calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(.01, .05, .1, .25, .5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return err
	}
	textsCounter, err = meter.Int64Counter(
		appmetrics.MetricNameWithSubsystem("embedder", "texts_embedded_total"),
		metric.WithDescription("Number of texts sent to the embedding provider"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	cacheHitCounter, err = meter.Int64Counter(
		appmetrics.MetricNameWithSubsystem("embedder", "cache_hits_total"),
		metric.WithDescription("Embedding cache hits"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	cacheMissCounter, err = meter.Int64Counter(
		appmetrics.MetricNameWithSubsystem("embedder", "cache_misses_total"),
		metric.WithDescription("Embedding cache misses"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	embedErrCounter, err = meter.Int64Counter(
		appmetrics.MetricNameWithSubsystem("embedder", "errors_total"),
		metric.WithDescription("Embedding provider failures"),
		metric.WithUnit("1"),
	)
	return err
}

// ResetMetricsForTesting clears instrument state between test runs.
func ResetMetricsForTesting() {
	metricsMu.Lock()
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	generationHist = nil
	textsCounter = nil
	cacheHitCounter = nil
	cacheMissCounter = nil
	embedErrCounter = nil
	metricsMu.Unlock()
}
