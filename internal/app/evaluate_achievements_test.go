package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Amund211/lilypad/internal/achievements"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/domaintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEvaluateAchievements(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	start := time.Date(2025, time.March, 14, 15, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Minute)

	const playerID = "player-1"
	player := domain.Player{ID: playerID, Username: "frogger"}

	lilyAndHeartSession := domaintest.NewGameSessionBuilder("gs-1", "client-1", start).
		WithPlayer(playerID).
		Completed(end, 1000).
		WithLilies(12).
		WithHearts(25).
		Build()

	awardedTypes := func(awarded []domain.Achievement) []string {
		types := make([]string, 0, len(awarded))
		for _, achievement := range awarded {
			types = append(types, achievement.AchievementType)
		}
		return types
	}

	t.Run("awards satisfied achievements", func(t *testing.T) {
		t.Parallel()

		repo := newFakeAchievementRepository()
		evaluate := BuildEvaluateAchievements(
			achievements.DefaultCatalog(),
			newFakePlayerRepository(player),
			newFakeSessionRepository(lilyAndHeartSession),
			repo,
		)

		awarded, err := evaluate(ctx, playerID, "gs-1")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{achievements.TypeLilyCollector, achievements.TypeHeartHoarder}, awardedTypes(awarded))
		require.Equal(t, []string{achievements.TypeHeartHoarder, achievements.TypeLilyCollector}, repo.earnedTypes(playerID))

		for _, earned := range repo.earned {
			require.Equal(t, "gs-1", *earned.GameSessionID)
		}
	})

	t.Run("nothing satisfied gives an empty result", func(t *testing.T) {
		t.Parallel()

		session := domaintest.NewGameSessionBuilder("gs-1", "client-1", start).WithPlayer(playerID).Completed(end, 10).Build()
		repo := newFakeAchievementRepository()
		evaluate := BuildEvaluateAchievements(
			achievements.DefaultCatalog(),
			newFakePlayerRepository(player),
			newFakeSessionRepository(session),
			repo,
		)

		awarded, err := evaluate(ctx, playerID, "gs-1")
		require.NoError(t, err)
		require.NotNil(t, awarded)
		require.Empty(t, awarded)
		require.Empty(t, repo.earned)
	})

	t.Run("an achievement is awarded at most once", func(t *testing.T) {
		t.Parallel()

		repo := newFakeAchievementRepository()
		evaluate := BuildEvaluateAchievements(
			achievements.DefaultCatalog(),
			newFakePlayerRepository(player),
			newFakeSessionRepository(lilyAndHeartSession),
			repo,
		)

		_, err := evaluate(ctx, playerID, "gs-1")
		require.NoError(t, err)

		awarded, err := evaluate(ctx, playerID, "gs-1")
		require.NoError(t, err)
		require.Empty(t, awarded)
		require.Len(t, repo.earned, 2)
	})

	t.Run("concurrent evaluations award at most once", func(t *testing.T) {
		t.Parallel()

		repo := newFakeAchievementRepository()
		evaluate := BuildEvaluateAchievements(
			achievements.DefaultCatalog(),
			newFakePlayerRepository(player),
			newFakeSessionRepository(lilyAndHeartSession),
			repo,
		)

		var totalAwarded atomic.Int32
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				awarded, err := evaluate(ctx, playerID, "gs-1")
				assert.NoError(t, err)
				totalAwarded.Add(int32(len(awarded)))
			}()
		}
		wg.Wait()

		require.Equal(t, int32(2), totalAwarded.Load())
		require.Len(t, repo.earned, 2)
		require.Len(t, repo.achievements, 2)
	})

	t.Run("only unearned rules are evaluated", func(t *testing.T) {
		t.Parallel()

		var calls sync.Map
		spy := func(rule achievements.Rule) achievements.Rule {
			satisfied := rule.Satisfied
			rule.Satisfied = func(session domain.GameSession) bool {
				count, _ := calls.LoadOrStore(rule.Type, new(atomic.Int32))
				count.(*atomic.Int32).Add(1)
				return satisfied(session)
			}
			return rule
		}
		callCount := func(ruleType string) int32 {
			count, ok := calls.Load(ruleType)
			if !ok {
				return 0
			}
			return count.(*atomic.Int32).Load()
		}

		catalog := achievements.MustNewCatalog(
			spy(achievements.LilyCollector),
			spy(achievements.HeartHoarder),
			spy(achievements.SpeedDemon),
		)

		repo := newFakeAchievementRepository()
		lily, err := repo.EnsureAchievement(ctx, achievements.LilyCollector.Achievement())
		require.NoError(t, err)
		_, err = repo.Award(ctx, playerID, lily.ID, nil)
		require.NoError(t, err)

		evaluate := BuildEvaluateAchievements(
			catalog,
			newFakePlayerRepository(player),
			newFakeSessionRepository(lilyAndHeartSession),
			repo,
		)

		awarded, err := evaluate(ctx, playerID, "gs-1")
		require.NoError(t, err)
		require.Equal(t, []string{achievements.TypeHeartHoarder}, awardedTypes(awarded))

		require.Zero(t, callCount(achievements.TypeLilyCollector))
		require.Equal(t, int32(1), callCount(achievements.TypeHeartHoarder))
		require.Equal(t, int32(1), callCount(achievements.TypeSpeedDemon))
	})

	t.Run("missing player", func(t *testing.T) {
		t.Parallel()

		evaluate := BuildEvaluateAchievements(
			achievements.DefaultCatalog(),
			newFakePlayerRepository(),
			newFakeSessionRepository(lilyAndHeartSession),
			newFakeAchievementRepository(),
		)

		awarded, err := evaluate(ctx, playerID, "gs-1")
		require.ErrorIs(t, err, domain.ErrPlayerNotFound)
		require.Nil(t, awarded)
	})

	t.Run("missing session", func(t *testing.T) {
		t.Parallel()

		evaluate := BuildEvaluateAchievements(
			achievements.DefaultCatalog(),
			newFakePlayerRepository(player),
			newFakeSessionRepository(),
			newFakeAchievementRepository(),
		)

		_, err := evaluate(ctx, playerID, "gs-1")
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		t.Parallel()

		repo := newFakeAchievementRepository()
		repo.awardErr = assert.AnError
		evaluate := BuildEvaluateAchievements(
			achievements.DefaultCatalog(),
			newFakePlayerRepository(player),
			newFakeSessionRepository(lilyAndHeartSession),
			repo,
		)

		_, err := evaluate(ctx, playerID, "gs-1")
		require.ErrorIs(t, err, assert.AnError)
	})
}
