package worker

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/logging"
	"github.com/go-co-op/gocron/v2"
)

// startReaper periodically returns units whose worker died to the queue
func (p *Pool) startReaper(ctx context.Context) (func(), error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(p.options.ReapInterval),
		gocron.NewTask(func() {
			p.reap(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule reaper: %w", err)
	}

	scheduler.Start()

	return func() {
		if err := scheduler.Shutdown(); err != nil {
			logging.FromContext(ctx).ErrorContext(ctx, "failed to shut down reaper", "error", err.Error())
		}
	}, nil
}

func (p *Pool) reap(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	requeued, err := p.queue.RequeueExpired(ctx)
	if err != nil {
		// NOTE: Queue implementations handle their own error reporting
		logging.FromContext(ctx).ErrorContext(ctx, "failed to requeue expired work units", "error", err.Error())
		return
	}
	if requeued > 0 {
		logging.FromContext(ctx).WarnContext(ctx, "requeued expired work units", "count", requeued)
		metrics.requeuedCount.Add(ctx, int64(requeued))
	}
}
