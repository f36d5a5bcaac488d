package playerrepository

import (
	"context"

	"github.com/Amund211/lilypad/internal/domain"
)

type PlayerRepository interface {
	CreatePlayer(ctx context.Context, registration domain.PlayerRegistration) (domain.Player, error)
	GetPlayer(ctx context.Context, playerID string) (domain.Player, error)
	GetPlayerByUsername(ctx context.Context, username string) (domain.Player, error)
	AggregateSession(ctx context.Context, playerID string, session domain.GameSession) (domain.AggregationResult, error)
	GetStats(ctx context.Context, playerID string) (domain.PlayerStats, error)
	GetProfile(ctx context.Context, playerID string) (domain.PlayerWithProfile, error)
	UpdateProfile(ctx context.Context, playerID string, update domain.ProfileUpdate) (domain.PlayerWithProfile, error)
}

var _ PlayerRepository = (*Postgres)(nil)
