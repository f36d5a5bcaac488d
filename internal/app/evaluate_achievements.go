package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/achievements"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
)

type playerGetter interface {
	GetPlayer(ctx context.Context, playerID string) (domain.Player, error)
}

type achievementRepository interface {
	EarnedTypes(ctx context.Context, playerID string) ([]string, error)
	EnsureAchievement(ctx context.Context, achievement domain.Achievement) (domain.Achievement, error)
	Award(ctx context.Context, playerID string, achievementID string, gameSessionID *string) (bool, error)
}

// EvaluateAchievements awards the player every achievement they have not yet earned whose
// rule is satisfied by the session. Returns the newly awarded achievements.
type EvaluateAchievements func(ctx context.Context, playerID string, gameSessionID string) ([]domain.Achievement, error)

func BuildEvaluateAchievements(
	catalog *achievements.Catalog,
	players playerGetter,
	sessions sessionGetter,
	repo achievementRepository,
) EvaluateAchievements {
	return func(ctx context.Context, playerID string, gameSessionID string) ([]domain.Achievement, error) {
		logger := logging.FromContext(ctx)

		player, err := players.GetPlayer(ctx, playerID)
		if err != nil {
			return nil, fmt.Errorf("could not get player: %w", err)
		}

		session, err := sessions.GetSession(ctx, gameSessionID)
		if err != nil {
			return nil, fmt.Errorf("could not get game session: %w", err)
		}

		earned, err := repo.EarnedTypes(ctx, player.ID)
		if err != nil {
			return nil, fmt.Errorf("could not get earned achievements: %w", err)
		}

		awarded := []domain.Achievement{}
		for _, rule := range catalog.Satisfied(earned, session) {
			achievement, err := repo.EnsureAchievement(ctx, rule.Achievement())
			if err != nil {
				return nil, fmt.Errorf("could not ensure achievement %s: %w", rule.Type, err)
			}

			sessionID := session.ID
			created, err := repo.Award(ctx, player.ID, achievement.ID, &sessionID)
			if err != nil {
				return nil, fmt.Errorf("could not award achievement %s: %w", rule.Type, err)
			}
			if !created {
				// Awarded concurrently by another worker
				continue
			}

			logger.InfoContext(ctx, "awarded achievement", "achievementType", achievement.AchievementType)
			awarded = append(awarded, achievement)
		}

		return awarded, nil
	}
}
