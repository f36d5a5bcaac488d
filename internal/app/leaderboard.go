package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Amund211/lilypad/internal/adapters/cache"
	"github.com/Amund211/lilypad/internal/domain"
)

const (
	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 500
)

type leaderboardRepository interface {
	GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

type GetLeaderboard func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)

// NormalizeLeaderboardLimit falls back to the default for non-positive limits and caps the rest
func NormalizeLeaderboardLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	return min(limit, MaxLeaderboardLimit)
}

func BuildGetLeaderboard(leaderboardCache cache.Cache[[]domain.LeaderboardEntry], repo leaderboardRepository) GetLeaderboard {
	return func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
		limit = NormalizeLeaderboardLimit(limit)

		entries, err := cache.GetOrCreate(ctx, leaderboardCache, strconv.Itoa(limit), func() ([]domain.LeaderboardEntry, error) {
			return repo.GetLeaderboard(ctx, limit)
		})
		if err != nil {
			// NOTE: GetOrCreate only returns an error if create() fails or ctx is done.
			// Repository implementations handle their own error reporting
			return nil, fmt.Errorf("failed to cache.GetOrCreate leaderboard: %w", err)
		}

		return entries, nil
	}
}
