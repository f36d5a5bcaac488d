package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
)

type suggestionCreator interface {
	CreateSuggestion(ctx context.Context, note string, playerID *string) (domain.Suggestion, error)
}

type CreateSuggestion func(ctx context.Context, submission domain.SuggestionSubmission) (domain.Suggestion, error)

// BuildCreateSuggestion stores a suggestion, attributed to the named player if any.
// Naming a player that does not exist fails with domain.ErrPlayerNotFound.
func BuildCreateSuggestion(players playerByUsernameGetter, repo suggestionCreator) CreateSuggestion {
	return func(ctx context.Context, submission domain.SuggestionSubmission) (domain.Suggestion, error) {
		if err := submission.Validate(); err != nil {
			return domain.Suggestion{}, err
		}

		var playerID *string
		if submission.PlayerName != nil && *submission.PlayerName != "" {
			player, err := players.GetPlayerByUsername(ctx, *submission.PlayerName)
			if err != nil {
				return domain.Suggestion{}, fmt.Errorf("could not find player %q: %w", *submission.PlayerName, err)
			}
			playerID = &player.ID
		}

		suggestion, err := repo.CreateSuggestion(ctx, submission.Note, playerID)
		if err != nil {
			return domain.Suggestion{}, fmt.Errorf("could not create suggestion: %w", err)
		}
		return suggestion, nil
	}
}
