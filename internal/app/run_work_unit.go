package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
)

// RunWorkUnit executes a single work unit. Errors wrapping domain.ErrInvalidWorkUnit,
// domain.ErrPlayerNotFound or domain.ErrSessionNotFound will not succeed on retry.
type RunWorkUnit func(ctx context.Context, unit domain.WorkUnit) error

func BuildRunWorkUnit(
	recordHighScore RecordHighScore,
	aggregatePlayerStats AggregatePlayerStats,
	evaluateAchievements EvaluateAchievements,
) RunWorkUnit {
	return func(ctx context.Context, unit domain.WorkUnit) error {
		switch unit.Kind {
		case domain.WorkKindRecordHighScore:
			_, err := recordHighScore(ctx, unit.GameSessionID)
			return err
		case domain.WorkKindAggregatePlayerStats:
			if unit.PlayerID == nil {
				return fmt.Errorf("%w: %s requires a player", domain.ErrInvalidWorkUnit, unit.Kind)
			}
			_, err := aggregatePlayerStats(ctx, *unit.PlayerID, unit.GameSessionID)
			return err
		case domain.WorkKindEvaluateAchievements:
			if unit.PlayerID == nil {
				return fmt.Errorf("%w: %s requires a player", domain.ErrInvalidWorkUnit, unit.Kind)
			}
			_, err := evaluateAchievements(ctx, *unit.PlayerID, unit.GameSessionID)
			return err
		}
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidWorkUnit, unit.Kind)
	}
}
