package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
)

type playerByUsernameGetter interface {
	GetPlayerByUsername(ctx context.Context, username string) (domain.Player, error)
}

type earnedAchievementLister interface {
	ListEarned(ctx context.Context, playerID string) ([]domain.EarnedAchievement, error)
}

type PlayerAchievements struct {
	Player       domain.Player
	Achievements []domain.EarnedAchievement
}

// GetPlayerAchievements lists the achievements earned by the player, newest first
type GetPlayerAchievements func(ctx context.Context, username string) (PlayerAchievements, error)

func BuildGetPlayerAchievements(players playerByUsernameGetter, repo earnedAchievementLister) GetPlayerAchievements {
	return func(ctx context.Context, username string) (PlayerAchievements, error) {
		player, err := players.GetPlayerByUsername(ctx, username)
		if err != nil {
			return PlayerAchievements{}, fmt.Errorf("could not get player: %w", err)
		}

		earned, err := repo.ListEarned(ctx, player.ID)
		if err != nil {
			return PlayerAchievements{}, fmt.Errorf("could not list earned achievements: %w", err)
		}

		return PlayerAchievements{
			Player:       player,
			Achievements: earned,
		}, nil
	}
}
