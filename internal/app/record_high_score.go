package app

import (
	"context"
	"fmt"

	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
)

type sessionGetter interface {
	GetSession(ctx context.Context, id string) (domain.GameSession, error)
}

type highScoreRecorder interface {
	FindOrCreate(ctx context.Context, gameSessionID string, score int64) (domain.HighScore, bool, error)
}

// RecordHighScore stores the final score of a completed session. Returns nil when the
// session is not completed.
type RecordHighScore func(ctx context.Context, gameSessionID string) (*domain.HighScore, error)

func BuildRecordHighScore(sessions sessionGetter, highScores highScoreRecorder) RecordHighScore {
	return func(ctx context.Context, gameSessionID string) (*domain.HighScore, error) {
		session, err := sessions.GetSession(ctx, gameSessionID)
		if err != nil {
			return nil, fmt.Errorf("could not get game session: %w", err)
		}

		if !session.Completed() {
			logging.FromContext(ctx).InfoContext(ctx, "game session not completed, not recording high score")
			return nil, nil
		}

		highScore, created, err := highScores.FindOrCreate(ctx, session.ID, session.Score())
		if err != nil {
			// NOTE: Repository implementations handle their own error reporting
			return nil, fmt.Errorf("could not record high score: %w", err)
		}

		logging.FromContext(ctx).InfoContext(ctx, "recorded high score", "score", highScore.Score, "created", created)

		return &highScore, nil
	}
}
