package achievementrepository

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund211/lilypad/internal/adapters/database"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/reporting"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Postgres struct {
	db      *sqlx.DB
	schema  string
	tracer  trace.Tracer
	nowFunc func() time.Time

	// achievement_type -> stored achievement. Catalog rows are never updated.
	byType *ttlcache.Cache[string, domain.Achievement]
}

func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("lilypad/achievementrepository/postgres")

	byType := ttlcache.New[string, domain.Achievement](
		ttlcache.WithTTL[string, domain.Achievement](time.Hour),
	)
	go byType.Start()

	return &Postgres{
		db:      db,
		schema:  schema,
		tracer:  tracer,
		nowFunc: nowFunc,
		byType:  byType,
	}
}

type dbAchievement struct {
	ID              string `db:"id"`
	AchievementType string `db:"achievement_type"`
	Name            string `db:"name"`
	Description     string `db:"description"`
	Points          int    `db:"points"`
}

func (a dbAchievement) toDomain() domain.Achievement {
	return domain.Achievement{
		ID:              a.ID,
		AchievementType: a.AchievementType,
		Name:            a.Name,
		Description:     a.Description,
		Points:          a.Points,
	}
}

// EarnedTypes returns the achievement types the player has earned
func (p *Postgres) EarnedTypes(ctx context.Context, playerID string) ([]string, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.EarnedTypes")
	defer span.End()

	var types []string
	err := p.db.SelectContext(
		ctx,
		&types,
		fmt.Sprintf(`SELECT a.achievement_type
		FROM %[1]s.earned_achievements ea
		JOIN %[1]s.achievements a ON a.id = ea.achievement_id
		WHERE ea.player_id = $1
		ORDER BY a.achievement_type`,
			pq.QuoteIdentifier(p.schema)),
		playerID,
	)
	if err != nil {
		err := fmt.Errorf("failed to select earned achievement types: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return nil, err
	}

	return types, nil
}

// EnsureAchievement returns the stored catalog row for achievement.AchievementType, creating it from
// achievement if it does not exist yet
func (p *Postgres) EnsureAchievement(ctx context.Context, achievement domain.Achievement) (domain.Achievement, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.EnsureAchievement")
	defer span.End()

	if item := p.byType.Get(achievement.AchievementType); item != nil {
		return item.Value(), nil
	}

	extras := map[string]string{
		"achievementType": achievement.AchievementType,
	}

	id, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate id: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.Achievement{}, err
	}

	_, err = p.db.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s.achievements
		(id, achievement_type, name, description, points, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (achievement_type) DO NOTHING`,
			pq.QuoteIdentifier(p.schema)),
		id.String(),
		achievement.AchievementType,
		achievement.Name,
		achievement.Description,
		achievement.Points,
		p.nowFunc(),
	)
	if err != nil {
		err := fmt.Errorf("failed to insert achievement: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.Achievement{}, err
	}

	var stored dbAchievement
	err = p.db.GetContext(
		ctx,
		&stored,
		fmt.Sprintf(`SELECT id, achievement_type, name, description, points
		FROM %s.achievements
		WHERE achievement_type = $1`,
			pq.QuoteIdentifier(p.schema)),
		achievement.AchievementType,
	)
	if err != nil {
		err := fmt.Errorf("failed to select achievement: %w", err)
		reporting.Report(ctx, err, extras)
		return domain.Achievement{}, err
	}

	result := stored.toDomain()
	p.byType.Set(result.AchievementType, result, ttlcache.DefaultTTL)

	return result, nil
}

// Award records that the player earned the achievement. awarded is false if it was already earned.
func (p *Postgres) Award(ctx context.Context, playerID string, achievementID string, gameSessionID *string) (bool, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.Award")
	defer span.End()

	extras := map[string]string{
		"playerID":      playerID,
		"achievementID": achievementID,
	}
	if gameSessionID != nil {
		extras["gameSessionID"] = *gameSessionID
	}

	id, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate id: %w", err)
		reporting.Report(ctx, err, extras)
		return false, err
	}

	result, err := p.db.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s.earned_achievements
		(id, player_id, achievement_id, game_session_id, earned_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id, achievement_id) DO NOTHING`,
			pq.QuoteIdentifier(p.schema)),
		id.String(),
		playerID,
		achievementID,
		gameSessionID,
		p.nowFunc(),
	)
	if database.IsForeignKeyViolation(err) {
		if database.ConstraintName(err) == "earned_achievements_player_id_fkey" {
			return false, fmt.Errorf("%w: %w", domain.ErrPlayerNotFound, err)
		}
		if database.ConstraintName(err) == "earned_achievements_game_session_id_fkey" {
			return false, fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err)
		}
	}
	if err != nil {
		err := fmt.Errorf("failed to insert earned achievement: %w", err)
		reporting.Report(ctx, err, extras)
		return false, err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("failed to get affected rows: %w", err)
		reporting.Report(ctx, err, extras)
		return false, err
	}

	return inserted > 0, nil
}

type dbEarnedAchievement struct {
	dbAchievement
	PlayerID      string    `db:"player_id"`
	GameSessionID *string   `db:"game_session_id"`
	EarnedAt      time.Time `db:"earned_at"`
}

// ListEarned returns the player's earned achievements, newest first
func (p *Postgres) ListEarned(ctx context.Context, playerID string) ([]domain.EarnedAchievement, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.ListEarned")
	defer span.End()

	var stored []dbEarnedAchievement
	err := p.db.SelectContext(
		ctx,
		&stored,
		fmt.Sprintf(`SELECT
			a.id, a.achievement_type, a.name, a.description, a.points,
			ea.player_id, ea.game_session_id, ea.earned_at
		FROM %[1]s.earned_achievements ea
		JOIN %[1]s.achievements a ON a.id = ea.achievement_id
		WHERE ea.player_id = $1
		ORDER BY ea.earned_at DESC, ea.id DESC`,
			pq.QuoteIdentifier(p.schema)),
		playerID,
	)
	if err != nil {
		err := fmt.Errorf("failed to select earned achievements: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return nil, err
	}

	earned := make([]domain.EarnedAchievement, 0, len(stored))
	for _, e := range stored {
		earned = append(earned, domain.EarnedAchievement{
			Achievement:   e.toDomain(),
			PlayerID:      e.PlayerID,
			GameSessionID: e.GameSessionID,
			EarnedAt:      e.EarnedAt,
		})
	}
	return earned, nil
}
