package sessionrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/lilypad/internal/adapters/database"
	"github.com/Amund211/lilypad/internal/adapters/jobqueue"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/reporting"
	"github.com/google/uuid"
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
}

func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("lilypad/sessionrepository/postgres")
	return &Postgres{
		db:      db,
		schema:  schema,
		tracer:  tracer,
		nowFunc: nowFunc,
	}
}

const sessionColumns = `id, session_id, player_id, player_name, seed, started_at, ended_at,
	final_score, lilies_collected, hearts_collected, obstacles_avoided,
	max_speed_reached, game_duration, created_at, updated_at`

type dbGameSession struct {
	ID               string     `db:"id"`
	SessionID        string     `db:"session_id"`
	PlayerID         *string    `db:"player_id"`
	PlayerName       *string    `db:"player_name"`
	Seed             *int64     `db:"seed"`
	StartedAt        *time.Time `db:"started_at"`
	EndedAt          *time.Time `db:"ended_at"`
	FinalScore       *int64     `db:"final_score"`
	LiliesCollected  *int       `db:"lilies_collected"`
	HeartsCollected  *int       `db:"hearts_collected"`
	ObstaclesAvoided *int       `db:"obstacles_avoided"`
	MaxSpeedReached  *float64   `db:"max_speed_reached"`
	GameDuration     *float64   `db:"game_duration"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (s dbGameSession) toDomain() domain.GameSession {
	return domain.GameSession{
		ID:               s.ID,
		SessionID:        s.SessionID,
		PlayerID:         s.PlayerID,
		PlayerName:       s.PlayerName,
		Seed:             s.Seed,
		StartedAt:        s.StartedAt,
		EndedAt:          s.EndedAt,
		FinalScore:       s.FinalScore,
		LiliesCollected:  s.LiliesCollected,
		HeartsCollected:  s.HeartsCollected,
		ObstaclesAvoided: s.ObstaclesAvoided,
		MaxSpeedReached:  s.MaxSpeedReached,
		GameDuration:     s.GameDuration,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func fromDomain(s domain.GameSession) dbGameSession {
	return dbGameSession{
		ID:               s.ID,
		SessionID:        s.SessionID,
		PlayerID:         s.PlayerID,
		PlayerName:       s.PlayerName,
		Seed:             s.Seed,
		StartedAt:        s.StartedAt,
		EndedAt:          s.EndedAt,
		FinalScore:       s.FinalScore,
		LiliesCollected:  s.LiliesCollected,
		HeartsCollected:  s.HeartsCollected,
		ObstaclesAvoided: s.ObstaclesAvoided,
		MaxSpeedReached:  s.MaxSpeedReached,
		GameDuration:     s.GameDuration,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// SaveSession creates or updates the session identified by submission.SessionID.
//
// The previous state is nil when the session was created by this call. onSaved, if set,
// runs in the same transaction with a queue whose units commit together with the session.
func (p *Postgres) SaveSession(
	ctx context.Context,
	submission domain.GameSessionSubmission,
	onSaved domain.SessionSavedFunc,
) (*domain.GameSession, domain.GameSession, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.SaveSession")
	defer span.End()

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return nil, domain.GameSession{}, err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"schema": p.schema,
		})
		return nil, domain.GameSession{}, err
	}

	previous, err := lockSession(ctx, txx, submission.SessionID)
	if err != nil {
		return nil, domain.GameSession{}, err
	}

	now := p.nowFunc()

	if previous == nil {
		id, err := uuid.NewV7()
		if err != nil {
			err := fmt.Errorf("failed to generate id: %w", err)
			reporting.Report(ctx, err)
			return nil, domain.GameSession{}, err
		}

		created := submission.ApplyTo(domain.GameSession{
			ID:        id.String(),
			CreatedAt: now,
			UpdatedAt: now,
		})

		inserted, err := insertSession(ctx, txx, created)
		if err != nil {
			return nil, domain.GameSession{}, err
		}

		if inserted {
			if err := p.commit(ctx, txx, onSaved, nil, created); err != nil {
				return nil, domain.GameSession{}, err
			}
			return nil, created, nil
		}

		// Someone else created the session after our lock attempt. Their row is visible
		// to a new locking read once their transaction has committed.
		previous, err = lockSession(ctx, txx, submission.SessionID)
		if err != nil {
			return nil, domain.GameSession{}, err
		}
		if previous == nil {
			err := fmt.Errorf("session disappeared after conflicting insert")
			reporting.Report(ctx, err, map[string]string{
				"sessionID": submission.SessionID,
			})
			return nil, domain.GameSession{}, err
		}
	}

	if err := submission.CheckOwnership(*previous); err != nil {
		return nil, domain.GameSession{}, err
	}

	current := submission.ApplyTo(*previous)
	current.UpdatedAt = now

	_, err = txx.NamedExecContext(
		ctx,
		`UPDATE game_sessions SET
			player_id = :player_id,
			player_name = :player_name,
			seed = :seed,
			started_at = :started_at,
			ended_at = :ended_at,
			final_score = :final_score,
			lilies_collected = :lilies_collected,
			hearts_collected = :hearts_collected,
			obstacles_avoided = :obstacles_avoided,
			max_speed_reached = :max_speed_reached,
			game_duration = :game_duration,
			updated_at = :updated_at
		WHERE id = :id`,
		fromDomain(current),
	)
	if err != nil {
		return nil, domain.GameSession{}, classifyWriteError(ctx, err, "failed to update game session", current)
	}

	if err := p.commit(ctx, txx, onSaved, previous, current); err != nil {
		return nil, domain.GameSession{}, err
	}

	return previous, current, nil
}

func (p *Postgres) commit(
	ctx context.Context,
	txx *sqlx.Tx,
	onSaved domain.SessionSavedFunc,
	previous *domain.GameSession,
	current domain.GameSession,
) error {
	if onSaved != nil {
		queue := jobqueue.NewTxEnqueuer(txx, p.schema, p.nowFunc)
		if err := onSaved(ctx, queue, previous, current); err != nil {
			// NOTE: The hook handles its own error reporting
			return fmt.Errorf("session save hook failed: %w", err)
		}
	}

	if err := txx.Commit(); err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err)
		return err
	}
	return nil
}

func lockSession(ctx context.Context, txx *sqlx.Tx, sessionID string) (*domain.GameSession, error) {
	var stored dbGameSession
	err := txx.GetContext(
		ctx,
		&stored,
		fmt.Sprintf("SELECT %s FROM game_sessions WHERE session_id = $1 FOR UPDATE", sessionColumns),
		sessionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		err := fmt.Errorf("failed to lock game session: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"sessionID": sessionID,
		})
		return nil, err
	}

	session := stored.toDomain()
	return &session, nil
}

// insertSession returns false if a session with the same session_id already exists
func insertSession(ctx context.Context, txx *sqlx.Tx, session domain.GameSession) (bool, error) {
	rows, err := sqlx.NamedQueryContext(
		ctx,
		txx,
		fmt.Sprintf(`INSERT INTO game_sessions (%s)
		VALUES (
			:id, :session_id, :player_id, :player_name, :seed, :started_at, :ended_at,
			:final_score, :lilies_collected, :hearts_collected, :obstacles_avoided,
			:max_speed_reached, :game_duration, :created_at, :updated_at
		)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id`, sessionColumns),
		fromDomain(session),
	)
	if err != nil {
		return false, classifyWriteError(ctx, err, "failed to insert game session", session)
	}
	defer rows.Close()

	inserted := rows.Next()
	if err := rows.Err(); err != nil {
		return false, classifyWriteError(ctx, err, "failed to insert game session", session)
	}
	return inserted, nil
}

func classifyWriteError(ctx context.Context, err error, message string, session domain.GameSession) error {
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %w", domain.ErrPlayerNotFound, err)
	}

	err = fmt.Errorf("%s: %w", message, err)
	extras := map[string]string{
		"id":        session.ID,
		"sessionID": session.SessionID,
	}
	if session.PlayerID != nil {
		extras["playerID"] = *session.PlayerID
	}
	reporting.Report(ctx, err, extras)
	return err
}

func (p *Postgres) GetSession(ctx context.Context, id string) (domain.GameSession, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetSession")
	defer span.End()

	if err := uuid.Validate(id); err != nil {
		return domain.GameSession{}, fmt.Errorf("%w: invalid id %q", domain.ErrSessionNotFound, id)
	}

	var stored dbGameSession
	err := p.db.GetContext(
		ctx,
		&stored,
		fmt.Sprintf("SELECT %s FROM %s.game_sessions WHERE id = $1", sessionColumns, pq.QuoteIdentifier(p.schema)),
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to get game session: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"id": id,
		})
		return domain.GameSession{}, err
	}

	return stored.toDomain(), nil
}

type dbHistorySession struct {
	dbGameSession
	AchievementsEarned int `db:"achievements_earned"`
}

type dbHistoryHighScore struct {
	ID            string    `db:"id"`
	GameSessionID string    `db:"game_session_id"`
	Score         int64     `db:"score"`
	CreatedAt     time.Time `db:"created_at"`
}

// GetGameHistory returns the player's completed sessions, most recently ended first
func (p *Postgres) GetGameHistory(ctx context.Context, playerID string, limit, offset int) (domain.GameHistory, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetGameHistory")
	defer span.End()

	txx, err := p.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return domain.GameHistory{}, err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"schema": p.schema,
		})
		return domain.GameHistory{}, err
	}

	var stored []dbHistorySession
	err = txx.SelectContext(
		ctx,
		&stored,
		fmt.Sprintf(`SELECT %s,
			(
				SELECT COUNT(*) FROM earned_achievements ea
				WHERE ea.game_session_id = game_sessions.id
			) AS achievements_earned
		FROM game_sessions
		WHERE player_id = $1 AND ended_at IS NOT NULL AND final_score IS NOT NULL
		ORDER BY ended_at DESC, id DESC
		LIMIT $2 OFFSET $3`, sessionColumns),
		playerID,
		limit,
		offset,
	)
	if err != nil {
		err := fmt.Errorf("failed to select game history: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return domain.GameHistory{}, err
	}

	var total int
	err = txx.GetContext(
		ctx,
		&total,
		`SELECT COUNT(*) FROM game_sessions
		WHERE player_id = $1 AND ended_at IS NOT NULL AND final_score IS NOT NULL`,
		playerID,
	)
	if err != nil {
		err := fmt.Errorf("failed to count game history: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return domain.GameHistory{}, err
	}

	entries := make([]domain.GameHistoryEntry, 0, len(stored))
	if len(stored) == 0 {
		return domain.GameHistory{Entries: entries, TotalGames: total}, nil
	}

	sessionIDs := make([]string, 0, len(stored))
	for _, s := range stored {
		sessionIDs = append(sessionIDs, s.ID)
	}

	var highScores []dbHistoryHighScore
	err = txx.SelectContext(
		ctx,
		&highScores,
		`SELECT id, game_session_id, score, created_at FROM high_scores
		WHERE game_session_id = ANY($1)
		ORDER BY created_at ASC, id ASC`,
		pq.Array(sessionIDs),
	)
	if err != nil {
		err := fmt.Errorf("failed to select high scores for game history: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return domain.GameHistory{}, err
	}

	highScoresBySession := make(map[string][]domain.HighScore, len(stored))
	for _, h := range highScores {
		highScoresBySession[h.GameSessionID] = append(highScoresBySession[h.GameSessionID], domain.HighScore{
			ID:            h.ID,
			GameSessionID: h.GameSessionID,
			Score:         h.Score,
			CreatedAt:     h.CreatedAt,
		})
	}

	for _, s := range stored {
		sessionHighScores := highScoresBySession[s.ID]
		if sessionHighScores == nil {
			sessionHighScores = []domain.HighScore{}
		}
		entries = append(entries, domain.GameHistoryEntry{
			Session:            s.toDomain(),
			HighScores:         sessionHighScores,
			AchievementsEarned: s.AchievementsEarned,
		})
	}

	return domain.GameHistory{
		Entries:    entries,
		TotalGames: total,
	}, nil
}
