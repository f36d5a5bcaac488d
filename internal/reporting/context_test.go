package reporting_test

import (
	"context"
	"testing"

	"github.com/Amund211/lilypad/internal/reporting"
	"github.com/stretchr/testify/require"
)

func TestReportingMeta(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()

		meta := reporting.MetaFromContext(context.Background())
		require.Empty(t, meta.Tags())
		require.Empty(t, meta.Extras())
		require.Empty(t, meta.PlayerID())
	})

	t.Run("values accumulate", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		ctx = reporting.AddTagsToContext(ctx, map[string]string{"kind": "record_high_score"})
		ctx = reporting.AddTagsToContext(ctx, map[string]string{"methodPath": "POST /v1/game_sessions"})
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{"gameSessionID": "abc"})
		ctx = reporting.SetPlayerIDInContext(ctx, "player-1")

		meta := reporting.MetaFromContext(ctx)
		require.Equal(t, map[string]string{
			"kind":       "record_high_score",
			"methodPath": "POST /v1/game_sessions",
		}, meta.Tags())
		require.Equal(t, map[string]string{"gameSessionID": "abc"}, meta.Extras())
		require.Equal(t, "player-1", meta.PlayerID())
	})

	t.Run("parent context is not mutated", func(t *testing.T) {
		t.Parallel()

		parent := reporting.AddTagsToContext(context.Background(), map[string]string{"a": "1"})
		child := reporting.AddTagsToContext(parent, map[string]string{"b": "2"})

		require.Equal(t, map[string]string{"a": "1"}, reporting.MetaFromContext(parent).Tags())
		require.Equal(t, map[string]string{"a": "1", "b": "2"}, reporting.MetaFromContext(child).Tags())

		// Mutating the returned map does not leak into the context either
		reporting.MetaFromContext(child).Tags()["c"] = "3"
		require.Len(t, reporting.MetaFromContext(child).Tags(), 2)
	})
}
