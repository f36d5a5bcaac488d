package playerrepository

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

type Postgres struct {
	db          *sqlx.DB
	schema      string
	lockTimeout time.Duration
	tracer      trace.Tracer
	nowFunc     func() time.Time
}

func NewPostgres(db *sqlx.DB, schema string, lockTimeout time.Duration, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("lilypad/playerrepository/postgres")
	return &Postgres{
		db:          db,
		schema:      schema,
		lockTimeout: lockTimeout,
		tracer:      tracer,
		nowFunc:     nowFunc,
	}
}

const playerColumns = `id, username, display_name, total_score, games_played, last_played_at, created_at`

type dbPlayer struct {
	ID           string     `db:"id"`
	Username     string     `db:"username"`
	DisplayName  *string    `db:"display_name"`
	TotalScore   int64      `db:"total_score"`
	GamesPlayed  int64      `db:"games_played"`
	LastPlayedAt *time.Time `db:"last_played_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (p dbPlayer) toDomain() domain.Player {
	return domain.Player{
		ID:           p.ID,
		Username:     p.Username,
		DisplayName:  p.DisplayName,
		TotalScore:   p.TotalScore,
		GamesPlayed:  p.GamesPlayed,
		LastPlayedAt: p.LastPlayedAt,
		CreatedAt:    p.CreatedAt,
	}
}

func (p *Postgres) CreatePlayer(ctx context.Context, registration domain.PlayerRegistration) (domain.Player, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.CreatePlayer")
	defer span.End()

	if err := registration.Validate(); err != nil {
		return domain.Player{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate id: %w", err)
		reporting.Report(ctx, err)
		return domain.Player{}, err
	}

	now := p.nowFunc()

	var created dbPlayer
	err = p.db.GetContext(
		ctx,
		&created,
		fmt.Sprintf(`INSERT INTO %s.players
		(id, username, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING %s`,
			pq.QuoteIdentifier(p.schema), playerColumns),
		id.String(),
		registration.Username,
		registration.DisplayName,
		now,
	)
	if database.IsUniqueViolation(err) {
		return domain.Player{}, fmt.Errorf("%w: %s", domain.ErrUsernameTaken, registration.Username)
	}
	if err != nil {
		err := fmt.Errorf("failed to insert player: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"username": registration.Username,
		})
		return domain.Player{}, err
	}

	return created.toDomain(), nil
}

func (p *Postgres) GetPlayer(ctx context.Context, playerID string) (domain.Player, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetPlayer")
	defer span.End()

	if err := uuid.Validate(playerID); err != nil {
		return domain.Player{}, fmt.Errorf("%w: invalid id %q", domain.ErrPlayerNotFound, playerID)
	}

	var stored dbPlayer
	err := p.db.GetContext(
		ctx,
		&stored,
		fmt.Sprintf("SELECT %s FROM %s.players WHERE id = $1", playerColumns, pq.QuoteIdentifier(p.schema)),
		playerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to get player: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return domain.Player{}, err
	}

	return stored.toDomain(), nil
}

// GetPlayerByUsername looks the player up case insensitively
func (p *Postgres) GetPlayerByUsername(ctx context.Context, username string) (domain.Player, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetPlayerByUsername")
	defer span.End()

	var stored dbPlayer
	err := p.db.GetContext(
		ctx,
		&stored,
		fmt.Sprintf("SELECT %s FROM %s.players WHERE lower(username) = lower($1)", playerColumns, pq.QuoteIdentifier(p.schema)),
		username,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to get player by username: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"username": username,
		})
		return domain.Player{}, err
	}

	return stored.toDomain(), nil
}

// AggregateSession folds a completed session into the player's running totals.
//
// The player row is locked for the duration of the fold, waiting at most the configured
// lock timeout. Each session is folded at most once; repeated calls are skipped.
func (p *Postgres) AggregateSession(ctx context.Context, playerID string, session domain.GameSession) (domain.AggregationResult, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.AggregateSession")
	defer span.End()

	extras := map[string]string{
		"playerID":      playerID,
		"gameSessionID": session.ID,
	}

	if !session.Completed() || !session.OwnedBy(playerID) {
		err := fmt.Errorf("session is not a completed session owned by the player")
		reporting.Report(ctx, err, extras)
		return domain.AggregationSkipped, err
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.AggregationSkipped, err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"schema": p.schema,
		})
		return domain.AggregationSkipped, err
	}

	// Scoped to this transaction
	_, err = txx.ExecContext(
		ctx,
		"SELECT set_config('lock_timeout', $1, true)",
		fmt.Sprintf("%dms", p.lockTimeout.Milliseconds()),
	)
	if err != nil {
		err := fmt.Errorf("failed to set lock timeout: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.AggregationSkipped, err
	}

	var lockedID string
	err = txx.GetContext(ctx, &lockedID, "SELECT id FROM players WHERE id = $1 FOR UPDATE", playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AggregationSkipped, domain.ErrPlayerNotFound
	}
	if database.IsLockNotAvailable(err) {
		return domain.AggregationSkipped, fmt.Errorf("%w: player %s: %w", domain.ErrLockTimeout, playerID, err)
	}
	if err != nil {
		err := fmt.Errorf("failed to lock player: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.AggregationSkipped, err
	}

	result, err := txx.ExecContext(
		ctx,
		`INSERT INTO aggregated_sessions (player_id, game_session_id, score, aggregated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id, game_session_id) DO NOTHING`,
		playerID,
		session.ID,
		session.Score(),
		p.nowFunc(),
	)
	if database.IsForeignKeyViolation(err) {
		return domain.AggregationSkipped, fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err)
	}
	if err != nil {
		err := fmt.Errorf("failed to mark session as aggregated: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.AggregationSkipped, err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("failed to get affected rows: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.AggregationSkipped, err
	}
	if inserted == 0 {
		// Already folded in
		return domain.AggregationSkipped, nil
	}

	_, err = txx.ExecContext(
		ctx,
		`UPDATE players SET
			total_score = total_score + $2,
			games_played = games_played + 1,
			last_played_at = $3,
			updated_at = $4
		WHERE id = $1`,
		playerID,
		session.Score(),
		*session.EndedAt,
		p.nowFunc(),
	)
	if err != nil {
		err := fmt.Errorf("failed to update player totals: %w", err)
		extras["score"] = strconv.FormatInt(session.Score(), 10)
		reporting.Report(ctx, err, extras)
		return domain.AggregationSkipped, err
	}

	if err := txx.Commit(); err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.AggregationSkipped, err
	}

	return domain.AggregationApplied, nil
}

type dbPlayerStats struct {
	ID               string     `db:"id"`
	TotalScore       int64      `db:"total_score"`
	GamesPlayed      int64      `db:"games_played"`
	LastPlayedAt     *time.Time `db:"last_played_at"`
	PersonalBest     int64      `db:"personal_best"`
	AchievementCount int        `db:"achievement_count"`
}

func (p *Postgres) GetStats(ctx context.Context, playerID string) (domain.PlayerStats, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetStats")
	defer span.End()

	if err := uuid.Validate(playerID); err != nil {
		return domain.PlayerStats{}, fmt.Errorf("%w: invalid id %q", domain.ErrPlayerNotFound, playerID)
	}

	var stored dbPlayerStats
	err := p.db.GetContext(
		ctx,
		&stored,
		fmt.Sprintf(`SELECT
			p.id,
			p.total_score,
			p.games_played,
			p.last_played_at,
			COALESCE((
				SELECT MAX(gs.final_score) FROM %[1]s.game_sessions gs
				WHERE gs.player_id = p.id AND gs.ended_at IS NOT NULL AND gs.final_score IS NOT NULL
			), 0) AS personal_best,
			(
				SELECT COUNT(*) FROM %[1]s.earned_achievements ea
				WHERE ea.player_id = p.id
			) AS achievement_count
		FROM %[1]s.players p
		WHERE p.id = $1`,
			pq.QuoteIdentifier(p.schema)),
		playerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PlayerStats{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to get player stats: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return domain.PlayerStats{}, err
	}

	return domain.PlayerStats{
		PlayerID:         stored.ID,
		TotalScore:       stored.TotalScore,
		GamesPlayed:      stored.GamesPlayed,
		LastPlayedAt:     stored.LastPlayedAt,
		PersonalBest:     stored.PersonalBest,
		AchievementCount: stored.AchievementCount,
	}, nil
}
