// Package jobqueue stores work units in postgres.
//
// Units move pending -> running when claimed and are deleted when completed. Failed units
// go back to pending with a later run_after, or to dead when they should not be retried.
// A running unit whose lease expired (its worker died) can be requeued.
package jobqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/reporting"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDead    Status = "dead"
)

// Errors are stored truncated
const maxErrorLength = 2000

type Postgres struct {
	db      *sqlx.DB
	schema  string
	tracer  trace.Tracer
	nowFunc func() time.Time
}

func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("lilypad/jobqueue/postgres")
	return &Postgres{
		db:      db,
		schema:  schema,
		tracer:  tracer,
		nowFunc: nowFunc,
	}
}

type dbWorkUnit struct {
	ID            string    `db:"id"`
	Kind          string    `db:"kind"`
	GameSessionID string    `db:"game_session_id"`
	PlayerID      *string   `db:"player_id"`
	Attempts      int       `db:"attempts"`
	CreatedAt     time.Time `db:"created_at"`
}

func (w dbWorkUnit) toDomain() domain.WorkUnit {
	return domain.WorkUnit{
		ID:            w.ID,
		Kind:          domain.WorkKind(w.Kind),
		GameSessionID: w.GameSessionID,
		PlayerID:      w.PlayerID,
		Attempts:      w.Attempts,
		CreatedAt:     w.CreatedAt,
	}
}

// Enqueue stores the units in one transaction. Ids are assigned to units without one.
func (p *Postgres) Enqueue(ctx context.Context, units ...domain.WorkUnit) ([]domain.WorkUnit, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.Enqueue")
	defer span.End()

	if len(units) == 0 {
		return []domain.WorkUnit{}, nil
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}
	defer txx.Rollback()

	stored, err := insertUnits(ctx, txx, p.schema, p.nowFunc(), units)
	if err != nil {
		return nil, err
	}

	if err := txx.Commit(); err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	return stored, nil
}

// TxEnqueuer enqueues units as part of a transaction owned by someone else.
// The units become claimable when that transaction commits, and vanish if it rolls back.
type TxEnqueuer struct {
	txx     *sqlx.Tx
	schema  string
	tracer  trace.Tracer
	nowFunc func() time.Time
}

func NewTxEnqueuer(txx *sqlx.Tx, schema string, nowFunc func() time.Time) *TxEnqueuer {
	return &TxEnqueuer{
		txx:     txx,
		schema:  schema,
		tracer:  otel.Tracer("lilypad/jobqueue/postgres"),
		nowFunc: nowFunc,
	}
}

func (q *TxEnqueuer) Enqueue(ctx context.Context, units ...domain.WorkUnit) ([]domain.WorkUnit, error) {
	ctx, span := q.tracer.Start(ctx, "TxEnqueuer.Enqueue")
	defer span.End()

	return insertUnits(ctx, q.txx, q.schema, q.nowFunc(), units)
}

func insertUnits(ctx context.Context, txx *sqlx.Tx, schema string, now time.Time, units []domain.WorkUnit) ([]domain.WorkUnit, error) {
	stored := make([]domain.WorkUnit, 0, len(units))
	for _, unit := range units {
		if unit.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				err := fmt.Errorf("failed to generate id: %w", err)
				reporting.Report(ctx, err)
				return nil, err
			}
			unit.ID = id.String()
		}
		unit.Attempts = 0
		unit.CreatedAt = now

		_, err := txx.ExecContext(
			ctx,
			fmt.Sprintf(`INSERT INTO %s.work_units
			(id, kind, game_session_id, player_id, status, attempts, run_after, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 0, $6, $6, $6)`,
				pq.QuoteIdentifier(schema)),
			unit.ID,
			string(unit.Kind),
			unit.GameSessionID,
			unit.PlayerID,
			string(StatusPending),
			now,
		)
		if err != nil {
			err := fmt.Errorf("failed to insert work unit: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"kind":          string(unit.Kind),
				"gameSessionID": unit.GameSessionID,
			})
			return nil, err
		}

		stored = append(stored, unit)
	}
	return stored, nil
}

// Claim leases the oldest due pending unit. ok is false when there is nothing to do.
func (p *Postgres) Claim(ctx context.Context, lease time.Duration) (domain.WorkUnit, bool, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.Claim")
	defer span.End()

	now := p.nowFunc()

	var claimed dbWorkUnit
	err := p.db.GetContext(
		ctx,
		&claimed,
		fmt.Sprintf(`UPDATE %[1]s.work_units SET
			status = $1,
			attempts = attempts + 1,
			locked_until = $2,
			updated_at = $3
		WHERE id = (
			SELECT id FROM %[1]s.work_units
			WHERE status = $4 AND run_after <= $3
			ORDER BY run_after, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, game_session_id, player_id, attempts, created_at`,
			pq.QuoteIdentifier(p.schema)),
		string(StatusRunning),
		now.Add(lease),
		now,
		string(StatusPending),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WorkUnit{}, false, nil
	}
	if err != nil {
		err := fmt.Errorf("failed to claim work unit: %w", err)
		reporting.Report(ctx, err)
		return domain.WorkUnit{}, false, err
	}

	return claimed.toDomain(), true, nil
}

// Complete removes a finished unit.
//
// Settling is fenced on the claim: once the lease expired and the unit was requeued or
// claimed again, ErrLeaseLost is returned and the row is left alone.
func (p *Postgres) Complete(ctx context.Context, unit domain.WorkUnit) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.Complete")
	defer span.End()

	result, err := p.db.ExecContext(
		ctx,
		fmt.Sprintf(
			"DELETE FROM %s.work_units WHERE id = $1 AND status = $2 AND attempts = $3",
			pq.QuoteIdentifier(p.schema),
		),
		unit.ID,
		string(StatusRunning),
		unit.Attempts,
	)
	if err != nil {
		err := fmt.Errorf("failed to delete work unit: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"unitID": unit.ID,
		})
		return err
	}
	return checkFenced(ctx, result, unit)
}

// Retry returns the unit to the queue, to be claimed again no earlier than runAfter
func (p *Postgres) Retry(ctx context.Context, unit domain.WorkUnit, runAfter time.Time, cause error) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.Retry")
	defer span.End()

	return p.release(ctx, unit, StatusPending, runAfter, cause)
}

// Bury marks the unit as dead. It is kept for inspection but never claimed again.
func (p *Postgres) Bury(ctx context.Context, unit domain.WorkUnit, cause error) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.Bury")
	defer span.End()

	return p.release(ctx, unit, StatusDead, p.nowFunc(), cause)
}

func (p *Postgres) release(ctx context.Context, unit domain.WorkUnit, status Status, runAfter time.Time, cause error) error {
	var lastError *string
	if cause != nil {
		message := cause.Error()
		if len(message) > maxErrorLength {
			message = message[:maxErrorLength]
		}
		lastError = &message
	}

	result, err := p.db.ExecContext(
		ctx,
		fmt.Sprintf(`UPDATE %s.work_units SET
			status = $2,
			run_after = $3,
			locked_until = NULL,
			last_error = $4,
			updated_at = $5
		WHERE id = $1 AND status = $6 AND attempts = $7`,
			pq.QuoteIdentifier(p.schema)),
		unit.ID,
		string(status),
		runAfter,
		lastError,
		p.nowFunc(),
		string(StatusRunning),
		unit.Attempts,
	)
	if err != nil {
		err := fmt.Errorf("failed to release work unit: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"unitID": unit.ID,
			"status": string(status),
		})
		return err
	}
	return checkFenced(ctx, result, unit)
}

func checkFenced(ctx context.Context, result sql.Result, unit domain.WorkUnit) error {
	affected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("failed to get affected rows: %w", err)
		reporting.Report(ctx, err)
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s (attempt %d)", domain.ErrLeaseLost, unit.ID, unit.Attempts)
	}
	return nil
}

// RequeueExpired returns running units whose lease has expired to the queue
func (p *Postgres) RequeueExpired(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.RequeueExpired")
	defer span.End()

	now := p.nowFunc()

	result, err := p.db.ExecContext(
		ctx,
		fmt.Sprintf(`UPDATE %s.work_units SET
			status = $1,
			run_after = $3,
			locked_until = NULL,
			last_error = 'lease expired',
			updated_at = $3
		WHERE status = $2 AND locked_until < $3`,
			pq.QuoteIdentifier(p.schema)),
		string(StatusPending),
		string(StatusRunning),
		now,
	)
	if err != nil {
		err := fmt.Errorf("failed to requeue expired work units: %w", err)
		reporting.Report(ctx, err)
		return 0, err
	}

	requeued, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("failed to get affected rows: %w", err)
		reporting.Report(ctx, err)
		return 0, err
	}

	return int(requeued), nil
}

func (p *Postgres) CountByStatus(ctx context.Context) (map[Status]int, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.CountByStatus")
	defer span.End()

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := p.db.SelectContext(
		ctx,
		&rows,
		fmt.Sprintf("SELECT status, COUNT(*) AS count FROM %s.work_units GROUP BY status", pq.QuoteIdentifier(p.schema)),
	)
	if err != nil {
		err := fmt.Errorf("failed to count work units: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	counts := map[Status]int{
		StatusPending: 0,
		StatusRunning: 0,
		StatusDead:    0,
	}
	for _, row := range rows {
		counts[Status(row.Status)] = row.Count
	}
	return counts, nil
}
