package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/compozy/trainconf/engine/infra/monitoring/metrics"
	"github.com/compozy/trainconf/pkg/logger"
)

const (
	storeMetricSubsystem = "store"
	groupLabelTopLevel   = "_top"
)

type discoverFileOutcome string

const (
	discoverOutcomeRegistered discoverFileOutcome = "registered"
	discoverOutcomeOverlay    discoverFileOutcome = "overlay"
	discoverOutcomeError      discoverFileOutcome = "error"
)

type storeMetrics struct {
	initOnce sync.Once

	registrations     metric.Int64Counter
	filesProcessed    metric.Int64Counter
	discoveryDuration metric.Float64Histogram
}

var metricsContainer storeMetrics

func storeMetricsRecorder(ctx context.Context) *storeMetrics {
	metricsContainer.initOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("trainconf.store")
		log := logger.FromContext(ctx)
		var err error

		metricsContainer.registrations, err = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem(storeMetricSubsystem, "registrations_total"),
			metric.WithDescription("Total registrations by group and whether an entry was overwritten"),
			metric.WithUnit("1"),
		)
		if err != nil {
			log.Warn("store metrics: failed to create registrations counter", "error", err)
		}

		metricsContainer.filesProcessed, err = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem(storeMetricSubsystem, "discover_files_total"),
			metric.WithDescription("Total files processed by discovery"),
			metric.WithUnit("1"),
		)
		if err != nil {
			log.Warn("store metrics: failed to create files counter", "error", err)
		}

		metricsContainer.discoveryDuration, err = meter.Float64Histogram(
			monitoringmetrics.MetricNameWithSubsystem(storeMetricSubsystem, "discover_duration_seconds"),
			metric.WithDescription("Time to discover and register config files"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(monitoringmetrics.ComposeDurationBuckets...),
		)
		if err != nil {
			log.Warn("store metrics: failed to create discovery histogram", "error", err)
		}
	})
	return &metricsContainer
}

func recordRegistration(ctx context.Context, group string, overwritten bool) {
	recorder := storeMetricsRecorder(ctx)
	if recorder.registrations == nil {
		return
	}
	recorder.registrations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("group", groupLabel(group)),
			attribute.Bool("overwritten", overwritten),
		),
	)
}

func recordDiscoverFile(ctx context.Context, outcome discoverFileOutcome) {
	recorder := storeMetricsRecorder(ctx)
	if recorder.filesProcessed == nil {
		return
	}
	recorder.filesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

func recordDiscoverDuration(ctx context.Context, duration time.Duration) {
	recorder := storeMetricsRecorder(ctx)
	if recorder.discoveryDuration == nil {
		return
	}
	recorder.discoveryDuration.Record(ctx, duration.Seconds())
}

// groupLabel keeps the attribute bounded to the top-level group segment.
func groupLabel(group string) string {
	group = strings.TrimPrefix(group, schemaPrefix+"/")
	if group == "" {
		return groupLabelTopLevel
	}
	if i := strings.Index(group, "/"); i >= 0 {
		return group[:i]
	}
	return group
}
