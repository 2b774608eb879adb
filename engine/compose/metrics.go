package compose

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/trainconf/engine/core"
	monitoringmetrics "github.com/compozy/trainconf/engine/infra/monitoring/metrics"
	"github.com/compozy/trainconf/pkg/logger"
)

const composeMetricSubsystem = "compose"

type composeMetrics struct {
	initOnce sync.Once

	compositions metric.Int64Counter
	duration     metric.Float64Histogram
}

var metricsContainer composeMetrics

func composeMetricsRecorder(ctx context.Context) *composeMetrics {
	metricsContainer.initOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("trainconf.compose")
		log := logger.FromContext(ctx)
		var err error

		metricsContainer.compositions, err = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem(composeMetricSubsystem, "compositions_total"),
			metric.WithDescription("Total compositions by primary config and outcome"),
			metric.WithUnit("1"),
		)
		if err != nil {
			log.Warn("compose metrics: failed to create compositions counter", "error", err)
		}

		metricsContainer.duration, err = meter.Float64Histogram(
			monitoringmetrics.MetricNameWithSubsystem(composeMetricSubsystem, "duration_seconds"),
			metric.WithDescription("Time to compose and validate a config"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(monitoringmetrics.ComposeDurationBuckets...),
		)
		if err != nil {
			log.Warn("compose metrics: failed to create duration histogram", "error", err)
		}
	})
	return &metricsContainer
}

func recordComposition(ctx context.Context, primary string, duration time.Duration, err error) {
	recorder := composeMetricsRecorder(ctx)
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(
		attribute.String("primary", primary),
		attribute.String("outcome", outcomeLabel(err)),
	)
	if recorder.compositions != nil {
		recorder.compositions.Add(ctx, 1, attrs)
	}
	if recorder.duration != nil {
		recorder.duration.Record(ctx, duration.Seconds(), attrs)
	}
}

// outcomeLabel maps an error to its code so the attribute stays bounded.
func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if coreErr, ok := core.AsError(err); ok && coreErr.Code != "" {
		return coreErr.Code
	}
	return "error"
}
