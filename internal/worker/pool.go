// Package worker runs queued work units.
//
// A Pool claims units from the queue with a lease and hands them to a single run function.
// Units that fail are retried with exponential backoff until they either succeed, fail
// permanently or run out of attempts, at which point they are buried.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
	"github.com/Amund211/lilypad/internal/reporting"
	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

type Queue interface {
	Claim(ctx context.Context, lease time.Duration) (domain.WorkUnit, bool, error)
	// Settling fails with domain.ErrLeaseLost when the unit is no longer held by this claim
	Complete(ctx context.Context, unit domain.WorkUnit) error
	Retry(ctx context.Context, unit domain.WorkUnit, runAfter time.Time, cause error) error
	Bury(ctx context.Context, unit domain.WorkUnit, cause error) error
	RequeueExpired(ctx context.Context) (int, error)
}

type Options struct {
	Concurrency int
	MaxAttempts int

	// How long a claimed unit is reserved for its worker
	Lease time.Duration
	// Upper bound on a single run of a unit. Must be shorter than Lease.
	UnitTimeout time.Duration

	// Sleep between claims when the queue is empty
	PollInterval time.Duration
	ReapInterval time.Duration

	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

func DefaultOptions() Options {
	return Options{
		Concurrency:          4,
		MaxAttempts:          10,
		Lease:                2 * time.Minute,
		UnitTimeout:          30 * time.Second,
		PollInterval:         500 * time.Millisecond,
		ReapInterval:         time.Minute,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     5 * time.Minute,
	}
}

func (o Options) Validate() error {
	if o.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", o.Concurrency)
	}
	if o.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", o.MaxAttempts)
	}
	if o.Lease <= 0 || o.UnitTimeout <= 0 {
		return fmt.Errorf("lease (%s) and unit timeout (%s) must be positive", o.Lease, o.UnitTimeout)
	}
	// A unit still running when its lease expires can be claimed by a second worker
	if o.UnitTimeout >= o.Lease {
		return fmt.Errorf("unit timeout (%s) must be shorter than the lease (%s)", o.UnitTimeout, o.Lease)
	}
	if o.PollInterval <= 0 || o.ReapInterval <= 0 {
		return fmt.Errorf("poll interval (%s) and reap interval (%s) must be positive", o.PollInterval, o.ReapInterval)
	}
	return nil
}

type outcome string

const (
	outcomeCompleted outcome = "completed"
	outcomeRetried   outcome = "retried"
	outcomeBuried    outcome = "buried"
	// Someone else owns the unit now
	outcomeLeaseLost outcome = "lease_lost"
)

type Pool struct {
	queue   Queue
	run     app.RunWorkUnit
	options Options
	nowFunc func() time.Time
}

func NewPool(queue Queue, run app.RunWorkUnit, options Options, nowFunc func() time.Time) (*Pool, error) {
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid worker options: %w", err)
	}

	return &Pool{
		queue:   queue,
		run:     run,
		options: options,
		nowFunc: nowFunc,
	}, nil
}

// Run processes units until ctx is cancelled
func (p *Pool) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	stopReaper, err := p.startReaper(ctx)
	if err != nil {
		return fmt.Errorf("failed to start reaper: %w", err)
	}
	defer stopReaper()

	logger.InfoContext(ctx, "starting worker pool", "concurrency", p.options.Concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := range p.options.Concurrency {
		g.Go(func() error {
			workerCtx := logging.AddMetaToContext(ctx, slog.Int("worker", i))
			p.poll(workerCtx)
			return nil
		})
	}

	return g.Wait()
}

func (p *Pool) poll(ctx context.Context) {
	logger := logging.FromContext(ctx)

	for ctx.Err() == nil {
		processed, err := p.ProcessNext(ctx)
		if err != nil {
			// NOTE: Queue implementations handle their own error reporting
			logger.ErrorContext(ctx, "failed to process work unit", "error", err.Error())
		}
		if processed && err == nil {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(p.options.PollInterval):
		}
	}
}

// ProcessNext claims and runs a single unit. processed is false when the queue had nothing due.
func (p *Pool) ProcessNext(ctx context.Context) (bool, error) {
	unit, ok, err := p.queue.Claim(ctx, p.options.Lease)
	if err != nil {
		return false, fmt.Errorf("failed to claim work unit: %w", err)
	}
	if !ok {
		return false, nil
	}

	ctx = reporting.NewHubContext(ctx)
	ctx = logging.AddMetaToContext(ctx,
		slog.String("workUnitID", unit.ID),
		slog.String("kind", string(unit.Kind)),
		slog.String("gameSessionID", unit.GameSessionID),
		slog.Int("attempt", unit.Attempts),
	)
	ctx = reporting.AddTagsToContext(ctx, map[string]string{
		"kind": string(unit.Kind),
	})
	ctx = reporting.AddExtrasToContext(ctx, map[string]string{
		"workUnitID":    unit.ID,
		"gameSessionID": unit.GameSessionID,
	})
	if unit.PlayerID != nil {
		ctx = logging.AddMetaToContext(ctx, slog.String("playerId", *unit.PlayerID))
		ctx = reporting.SetPlayerIDInContext(ctx, *unit.PlayerID)
	}

	start := time.Now()
	runErr := p.runUnit(ctx, unit)

	result, err := p.settle(ctx, unit, runErr)

	attributes := metric.WithAttributes(
		attribute.String("kind", string(unit.Kind)),
		attribute.String("outcome", string(result)),
	)
	metrics.processedCount.Add(ctx, 1, attributes)
	metrics.processingDuration.Record(ctx, time.Since(start).Seconds(), attributes)

	return true, err
}

func (p *Pool) runUnit(ctx context.Context, unit domain.WorkUnit) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.options.UnitTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while running work unit: %v", r)
		}
	}()

	return p.run(ctx, unit)
}

// settle records the result of a run in the queue
func (p *Pool) settle(ctx context.Context, unit domain.WorkUnit, runErr error) (outcome, error) {
	logger := logging.FromContext(ctx)

	// The unit is settled even when the pool is shutting down
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if runErr == nil {
		logger.InfoContext(ctx, "work unit completed")
		if err := p.queue.Complete(ctx, unit); err != nil {
			return leaseLostOr(ctx, outcomeCompleted, fmt.Errorf("failed to complete work unit: %w", err))
		}
		return outcomeCompleted, nil
	}

	if isPermanent(runErr) || unit.Attempts >= p.options.MaxAttempts {
		logger.ErrorContext(ctx, "burying work unit", "error", runErr.Error())
		reporting.Report(ctx, fmt.Errorf("work unit buried: %w", runErr))
		if err := p.queue.Bury(ctx, unit, runErr); err != nil {
			return leaseLostOr(ctx, outcomeBuried, fmt.Errorf("failed to bury work unit: %w", err))
		}
		return outcomeBuried, nil
	}

	delay := p.retryDelay(unit.Attempts)
	logger.WarnContext(ctx, "retrying work unit", "error", runErr.Error(), "delay", delay.String())
	if err := p.queue.Retry(ctx, unit, p.nowFunc().Add(delay), runErr); err != nil {
		return leaseLostOr(ctx, outcomeRetried, fmt.Errorf("failed to retry work unit: %w", err))
	}
	return outcomeRetried, nil
}

// leaseLostOr drops settle errors caused by the unit having been handed to another worker.
// The current owner settles it, and every unit kind is safe to run again.
func leaseLostOr(ctx context.Context, result outcome, err error) (outcome, error) {
	if !errors.Is(err, domain.ErrLeaseLost) {
		return result, err
	}
	logging.FromContext(ctx).WarnContext(ctx, "work unit lease lost before settling", "error", err.Error())
	return outcomeLeaseLost, nil
}

// isPermanent reports whether retrying can never make the unit succeed
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrPlayerNotFound) ||
		errors.Is(err, domain.ErrSessionNotFound) ||
		errors.Is(err, domain.ErrInvalidWorkUnit)
}

func (p *Pool) retryDelay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.options.RetryInitialInterval
	b.MaxInterval = p.options.RetryMaxInterval

	delay := b.NextBackOff()
	for range attempts - 1 {
		delay = b.NextBackOff()
	}
	return delay
}
