package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
)

type sessionSaver interface {
	SaveSession(
		ctx context.Context,
		submission domain.GameSessionSubmission,
		onSaved domain.SessionSavedFunc,
	) (*domain.GameSession, domain.GameSession, error)
}

type playerStatsGetter interface {
	GetStats(ctx context.Context, playerID string) (domain.PlayerStats, error)
}

type SubmittedGameSession struct {
	Session domain.GameSession

	// Only set for completed sessions owned by a player
	PlayerStats *domain.PlayerStats
}

// SubmitGameSession creates or updates a session and dispatches the post-completion work
// when the save completed it.
//
// The work units are stored in the same transaction as the session. If they can not be
// stored the save is rolled back and an error returned, so resubmitting the session
// dispatches again.
type SubmitGameSession func(ctx context.Context, submission domain.GameSessionSubmission) (SubmittedGameSession, error)

func BuildSubmitGameSession(repo sessionSaver, stats playerStatsGetter) SubmitGameSession {
	dispatchOnCompletion := func(ctx context.Context, queue domain.WorkEnqueuer, previous *domain.GameSession, current domain.GameSession) error {
		if !domain.ShouldDispatch(previous, current) {
			return nil
		}

		_, err := BuildDispatchSessionCompletion(queue)(ctx, domain.SessionCompletedEvent{
			GameSessionID: current.ID,
			PlayerID:      current.PlayerID,
		})
		return err
	}

	return func(ctx context.Context, submission domain.GameSessionSubmission) (SubmittedGameSession, error) {
		logger := logging.FromContext(ctx)

		if err := submission.Validate(); err != nil {
			return SubmittedGameSession{}, err
		}

		_, session, err := repo.SaveSession(ctx, submission, dispatchOnCompletion)
		if err != nil {
			// NOTE: Repository and queue implementations handle their own error reporting
			return SubmittedGameSession{}, fmt.Errorf("could not save game session: %w", err)
		}

		result := SubmittedGameSession{Session: session}
		if session.IsGuest() || !session.Completed() {
			return result, nil
		}

		playerStats, err := stats.GetStats(ctx, *session.PlayerID)
		if err != nil {
			// NOTE: The stats snapshot is optional
			logger.ErrorContext(ctx, "failed to get player stats", "error", err.Error())
			return result, nil
		}
		result.PlayerStats = &playerStats

		return result, nil
	}
}
