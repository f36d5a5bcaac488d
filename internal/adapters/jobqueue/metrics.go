package jobqueue

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterDepthMetric reports the number of work units per status on every collection
func (p *Postgres) RegisterDepthMetric(meter metric.Meter) error {
	depth, err := meter.Int64ObservableGauge(
		"jobqueue/work_units",
		metric.WithDescription("Number of work units in the queue by status"),
	)
	if err != nil {
		return fmt.Errorf("failed to create work units gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, observer metric.Observer) error {
		counts, err := p.CountByStatus(ctx)
		if err != nil {
			// NOTE: CountByStatus reports its own errors
			return nil
		}
		for status, count := range counts {
			observer.ObserveInt64(depth, int64(count), metric.WithAttributes(
				attribute.String("status", string(status)),
			))
		}
		return nil
	}, depth)
	if err != nil {
		return fmt.Errorf("failed to register work units callback: %w", err)
	}

	return nil
}
