package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
)

type playerCreator interface {
	CreatePlayer(ctx context.Context, registration domain.PlayerRegistration) (domain.Player, error)
}

type CreatePlayer func(ctx context.Context, registration domain.PlayerRegistration) (domain.Player, error)

func BuildCreatePlayer(repo playerCreator) CreatePlayer {
	return func(ctx context.Context, registration domain.PlayerRegistration) (domain.Player, error) {
		if err := registration.Validate(); err != nil {
			return domain.Player{}, err
		}

		player, err := repo.CreatePlayer(ctx, registration)
		if err != nil {
			return domain.Player{}, fmt.Errorf("could not create player: %w", err)
		}
		return player, nil
	}
}

type GetPlayerStats func(ctx context.Context, playerID string) (domain.PlayerStats, error)

func BuildGetPlayerStats(repo playerStatsGetter) GetPlayerStats {
	return func(ctx context.Context, playerID string) (domain.PlayerStats, error) {
		return repo.GetStats(ctx, playerID)
	}
}
