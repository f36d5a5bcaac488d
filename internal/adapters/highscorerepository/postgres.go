package highscorerepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Amund211/lilypad/internal/adapters/database"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/reporting"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const GuestPlayerName = "Guest Player"

type Postgres struct {
	db      *sqlx.DB
	schema  string
	tracer  trace.Tracer
	nowFunc func() time.Time
}

func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("lilypad/highscorerepository/postgres")
	return &Postgres{
		db:      db,
		schema:  schema,
		tracer:  tracer,
		nowFunc: nowFunc,
	}
}

type dbHighScore struct {
	ID            string    `db:"id"`
	GameSessionID string    `db:"game_session_id"`
	Score         int64     `db:"score"`
	CreatedAt     time.Time `db:"created_at"`
}

func (h dbHighScore) toDomain() domain.HighScore {
	return domain.HighScore{
		ID:            h.ID,
		GameSessionID: h.GameSessionID,
		Score:         h.Score,
		CreatedAt:     h.CreatedAt,
	}
}

// FindOrCreate returns the high score entry for (gameSessionID, score), creating it if needed.
// created is false when the entry already existed.
func (p *Postgres) FindOrCreate(ctx context.Context, gameSessionID string, score int64) (domain.HighScore, bool, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.FindOrCreate")
	defer span.End()

	extras := map[string]string{
		"gameSessionID": gameSessionID,
		"score":         strconv.FormatInt(score, 10),
	}

	id, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate id: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.HighScore{}, false, err
	}

	var inserted dbHighScore
	err = p.db.GetContext(
		ctx,
		&inserted,
		fmt.Sprintf(`INSERT INTO %s.high_scores
		(id, game_session_id, score, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_session_id, score) DO NOTHING
		RETURNING id, game_session_id, score, created_at`,
			pq.QuoteIdentifier(p.schema)),
		id.String(),
		gameSessionID,
		score,
		p.nowFunc(),
	)
	if err == nil {
		return inserted.toDomain(), true, nil
	}
	if database.IsForeignKeyViolation(err) {
		return domain.HighScore{}, false, fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		err := fmt.Errorf("failed to insert high score: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.HighScore{}, false, err
	}

	// The entry already exists
	var existing dbHighScore
	err = p.db.GetContext(
		ctx,
		&existing,
		fmt.Sprintf(`SELECT id, game_session_id, score, created_at
		FROM %s.high_scores
		WHERE game_session_id = $1 AND score = $2`,
			pq.QuoteIdentifier(p.schema)),
		gameSessionID,
		score,
	)
	if err != nil {
		err := fmt.Errorf("failed to select existing high score: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.HighScore{}, false, err
	}

	return existing.toDomain(), false, nil
}

func (p *Postgres) ListForSession(ctx context.Context, gameSessionID string) ([]domain.HighScore, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.ListForSession")
	defer span.End()

	var stored []dbHighScore
	err := p.db.SelectContext(
		ctx,
		&stored,
		fmt.Sprintf(`SELECT id, game_session_id, score, created_at
		FROM %s.high_scores
		WHERE game_session_id = $1
		ORDER BY created_at ASC, id ASC`,
			pq.QuoteIdentifier(p.schema)),
		gameSessionID,
	)
	if err != nil {
		err := fmt.Errorf("failed to select high scores: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"gameSessionID": gameSessionID,
		})
		return nil, err
	}

	highScores := make([]domain.HighScore, 0, len(stored))
	for _, h := range stored {
		highScores = append(highScores, h.toDomain())
	}
	return highScores, nil
}

type dbLeaderboardEntry struct {
	Score      int64     `db:"score"`
	PlayerName string    `db:"player_name"`
	AchievedAt time.Time `db:"achieved_at"`
	IsGuest    bool      `db:"is_guest"`
	Username   *string   `db:"username"`
}

// GetLeaderboard returns the top high scores. Ties are ranked by who got there first.
func (p *Postgres) GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetLeaderboard")
	defer span.End()

	var stored []dbLeaderboardEntry
	err := p.db.SelectContext(
		ctx,
		&stored,
		fmt.Sprintf(`SELECT
			hs.score AS score,
			COALESCE(NULLIF(pl.display_name, ''), pl.username, NULLIF(gs.player_name, ''), $2) AS player_name,
			hs.created_at AS achieved_at,
			gs.player_id IS NULL AS is_guest,
			pl.username AS username
		FROM %[1]s.high_scores hs
		JOIN %[1]s.game_sessions gs ON gs.id = hs.game_session_id
		LEFT JOIN %[1]s.players pl ON pl.id = gs.player_id
		ORDER BY hs.score DESC, hs.created_at ASC, hs.id ASC
		LIMIT $1`,
			pq.QuoteIdentifier(p.schema)),
		limit,
		GuestPlayerName,
	)
	if err != nil {
		err := fmt.Errorf("failed to select leaderboard: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"limit": strconv.Itoa(limit),
		})
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(stored))
	for i, e := range stored {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:       i + 1,
			Score:      e.Score,
			PlayerName: e.PlayerName,
			AchievedAt: e.AchievedAt,
			IsGuest:    e.IsGuest,
			Username:   e.Username,
		})
	}
	return entries, nil
}
