package suggestionrepository

import (
	"context"
	"fmt"
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
	db      *sqlx.DB
	schema  string
	tracer  trace.Tracer
	nowFunc func() time.Time
}

func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("lilypad/suggestionrepository/postgres")
	return &Postgres{
		db:      db,
		schema:  schema,
		tracer:  tracer,
		nowFunc: nowFunc,
	}
}

type dbSuggestion struct {
	ID        string    `db:"id"`
	Note      string    `db:"note"`
	PlayerID  *string   `db:"player_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (p *Postgres) CreateSuggestion(ctx context.Context, note string, playerID *string) (domain.Suggestion, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.CreateSuggestion")
	defer span.End()

	if err := (domain.SuggestionSubmission{Note: note}).Validate(); err != nil {
		return domain.Suggestion{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate id: %w", err)
		reporting.Report(ctx, err)
		return domain.Suggestion{}, err
	}

	var created dbSuggestion
	err = p.db.GetContext(
		ctx,
		&created,
		fmt.Sprintf(`INSERT INTO %s.suggestions
		(id, note, player_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, note, player_id, created_at`,
			pq.QuoteIdentifier(p.schema)),
		id.String(),
		note,
		playerID,
		p.nowFunc(),
	)
	if database.IsForeignKeyViolation(err) {
		return domain.Suggestion{}, fmt.Errorf("%w: %w", domain.ErrPlayerNotFound, err)
	}
	if err != nil {
		err := fmt.Errorf("failed to insert suggestion: %w", err)
		reporting.Report(ctx, err)
		return domain.Suggestion{}, err
	}

	return domain.Suggestion{
		ID:        created.ID,
		Note:      created.Note,
		PlayerID:  created.PlayerID,
		CreatedAt: created.CreatedAt,
	}, nil
}
