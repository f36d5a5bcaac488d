package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
)

const (
	DefaultGameHistoryLimit = 20
	MaxGameHistoryLimit     = 100
)

type gameHistoryRepository interface {
	GetGameHistory(ctx context.Context, playerID string, limit, offset int) (domain.GameHistory, error)
}

type PlayerGameHistory struct {
	Player  domain.Player
	History domain.GameHistory
	Limit   int
	Offset  int
}

// GetGameHistory lists the player's completed sessions, newest first
type GetGameHistory func(ctx context.Context, username string, limit, offset int) (PlayerGameHistory, error)

func BuildGetGameHistory(players playerByUsernameGetter, repo gameHistoryRepository) GetGameHistory {
	return func(ctx context.Context, username string, limit, offset int) (PlayerGameHistory, error) {
		if limit <= 0 {
			limit = DefaultGameHistoryLimit
		}
		limit = min(limit, MaxGameHistoryLimit)
		offset = max(offset, 0)

		player, err := players.GetPlayerByUsername(ctx, username)
		if err != nil {
			return PlayerGameHistory{}, fmt.Errorf("could not get player: %w", err)
		}

		history, err := repo.GetGameHistory(ctx, player.ID, limit, offset)
		if err != nil {
			return PlayerGameHistory{}, fmt.Errorf("could not get game history: %w", err)
		}

		return PlayerGameHistory{
			Player:  player,
			History: history,
			Limit:   limit,
			Offset:  offset,
		}, nil
	}
}
