package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
)

type profileGetter interface {
	GetProfile(ctx context.Context, playerID string) (domain.PlayerWithProfile, error)
}

type profileUpdater interface {
	UpdateProfile(ctx context.Context, playerID string, update domain.ProfileUpdate) (domain.PlayerWithProfile, error)
}

type GetPlayerProfile func(ctx context.Context, playerID string) (domain.PlayerWithProfile, error)

func BuildGetPlayerProfile(repo profileGetter) GetPlayerProfile {
	return func(ctx context.Context, playerID string) (domain.PlayerWithProfile, error) {
		return repo.GetProfile(ctx, playerID)
	}
}

// UpdatePlayerProfile changes the player and their profile together. Either both are
// saved or neither is.
type UpdatePlayerProfile func(ctx context.Context, playerID string, update domain.ProfileUpdate) (domain.PlayerWithProfile, error)

func BuildUpdatePlayerProfile(repo profileUpdater) UpdatePlayerProfile {
	return func(ctx context.Context, playerID string, update domain.ProfileUpdate) (domain.PlayerWithProfile, error) {
		if err := update.Validate(); err != nil {
			return domain.PlayerWithProfile{}, err
		}

		result, err := repo.UpdateProfile(ctx, playerID, update)
		if err != nil {
			return domain.PlayerWithProfile{}, fmt.Errorf("could not update player profile: %w", err)
		}
		return result, nil
	}
}
