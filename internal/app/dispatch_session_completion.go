package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
)

// DispatchSessionCompletion schedules the post-completion work for a session.
// High scores are recorded for every session, stats and achievements only for owned ones.
type DispatchSessionCompletion func(ctx context.Context, event domain.SessionCompletedEvent) ([]domain.WorkUnit, error)

func WorkUnitsForEvent(event domain.SessionCompletedEvent) []domain.WorkUnit {
	units := []domain.WorkUnit{
		{Kind: domain.WorkKindRecordHighScore, GameSessionID: event.GameSessionID},
	}
	if event.PlayerID == nil {
		return units
	}

	playerID := *event.PlayerID
	return append(units,
		domain.WorkUnit{Kind: domain.WorkKindAggregatePlayerStats, GameSessionID: event.GameSessionID, PlayerID: &playerID},
		domain.WorkUnit{Kind: domain.WorkKindEvaluateAchievements, GameSessionID: event.GameSessionID, PlayerID: &playerID},
	)
}

func BuildDispatchSessionCompletion(queue domain.WorkEnqueuer) DispatchSessionCompletion {
	return func(ctx context.Context, event domain.SessionCompletedEvent) ([]domain.WorkUnit, error) {
		units, err := queue.Enqueue(ctx, WorkUnitsForEvent(event)...)
		if err != nil {
			// NOTE: Queue implementations handle their own error reporting
			return nil, fmt.Errorf("could not enqueue work units: %w", err)
		}

		logging.FromContext(ctx).InfoContext(ctx, "dispatched session completion", "units", len(units))

		return units, nil
	}
}
