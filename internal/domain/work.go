package domain

import (
	"context"
	"time"
)

type WorkKind string

const (
	WorkKindRecordHighScore      WorkKind = "record_high_score"
	WorkKindAggregatePlayerStats WorkKind = "aggregate_player_stats"
	WorkKindEvaluateAchievements WorkKind = "evaluate_achievements"
)

// WorkUnit is one schedulable piece of post-completion work.
// It only carries identifiers so it can be run later by any worker process.
type WorkUnit struct {
	ID            string
	Kind          WorkKind
	GameSessionID string
	PlayerID      *string

	Attempts  int
	CreatedAt time.Time
}

// WorkEnqueuer stores work units for the worker pool
type WorkEnqueuer interface {
	Enqueue(ctx context.Context, units ...WorkUnit) ([]WorkUnit, error)
}

// SessionSavedFunc runs inside the transaction that saves a session, before it commits.
// Units enqueued on queue are committed together with the session. Returning an error
// rolls back both.
type SessionSavedFunc func(ctx context.Context, queue WorkEnqueuer, previous *GameSession, current GameSession) error

type SessionCompletedEvent struct {
	GameSessionID string
	PlayerID      *string
}

type AggregationResult int

const (
	AggregationSkipped AggregationResult = iota
	AggregationApplied
)

func (r AggregationResult) String() string {
	switch r {
	case AggregationApplied:
		return "applied"
	case AggregationSkipped:
		return "skipped"
	}
	return "unknown"
}
