package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
)

type sessionAggregator interface {
	AggregateSession(ctx context.Context, playerID string, session domain.GameSession) (domain.AggregationResult, error)
}

// AggregatePlayerStats folds a completed session into the owning player's totals.
// Each session is folded at most once.
type AggregatePlayerStats func(ctx context.Context, playerID string, gameSessionID string) (domain.AggregationResult, error)

func BuildAggregatePlayerStats(sessions sessionGetter, players sessionAggregator) AggregatePlayerStats {
	return func(ctx context.Context, playerID string, gameSessionID string) (domain.AggregationResult, error) {
		logger := logging.FromContext(ctx)

		session, err := sessions.GetSession(ctx, gameSessionID)
		if err != nil {
			return domain.AggregationSkipped, fmt.Errorf("could not get game session: %w", err)
		}

		switch {
		case !session.Completed():
			logger.InfoContext(ctx, "game session not completed, skipping aggregation")
			return domain.AggregationSkipped, nil
		case session.IsGuest():
			logger.InfoContext(ctx, "guest session, skipping aggregation")
			return domain.AggregationSkipped, nil
		case !session.OwnedBy(playerID):
			logger.WarnContext(ctx, "game session owned by another player, skipping aggregation", "owner", *session.PlayerID)
			return domain.AggregationSkipped, nil
		}

		result, err := players.AggregateSession(ctx, playerID, session)
		if err != nil {
			return domain.AggregationSkipped, fmt.Errorf("could not aggregate session: %w", err)
		}

		logger.InfoContext(ctx, "aggregated game session", "result", result.String())

		return result, nil
	}
}
