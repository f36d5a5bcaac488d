package worker

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type workerMetricsCollection struct {
	processedCount     metric.Int64Counter
	processingDuration metric.Float64Histogram
	requeuedCount      metric.Int64Counter
}

var metrics workerMetricsCollection

func init() {
	const name = "lilypad/worker"
	meter := otel.Meter(name)

	processedCount, err := meter.Int64Counter(
		"worker/processed_count",
		metric.WithDescription("Total number of work units processed"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create processed count metric: %w", err))
	}

	processingDuration, err := meter.Float64Histogram(
		"worker/processing_duration_seconds",
		metric.WithDescription("Processing time for work units"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create processing duration metric: %w", err))
	}

	requeuedCount, err := meter.Int64Counter(
		"worker/requeued_count",
		metric.WithDescription("Total number of work units requeued after their lease expired"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create requeued count metric: %w", err))
	}

	metrics = workerMetricsCollection{
		processedCount:     processedCount,
		processingDuration: processingDuration,
		requeuedCount:      requeuedCount,
	}
}
