package ports_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/ports"
	"github.com/stretchr/testify/require"
)

type leaderboardBody struct {
	Leaderboard []struct {
		Rank       int       `json:"rank"`
		Score      int64     `json:"score"`
		PlayerName string    `json:"player_name"`
		AchievedAt time.Time `json:"achieved_at"`
		IsGuest    bool      `json:"is_guest"`
		Player     *struct {
			Username string `json:"username"`
		} `json:"player"`
	} `json:"leaderboard"`
	TotalEntries int `json:"total_entries"`
	Limit        int `json:"limit"`
}

func TestMakeGetLeaderboardHandler(t *testing.T) {
	t.Parallel()

	achievedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	username := "froggy"
	entries := []domain.LeaderboardEntry{
		{Rank: 1, Score: 5000, PlayerName: "Froggy", AchievedAt: achievedAt, Username: &username},
		{Rank: 2, Score: 1200, PlayerName: "Guest Player", AchievedAt: achievedAt, IsGuest: true},
	}

	makeHandler := func(t *testing.T, getLeaderboard app.GetLeaderboard) http.HandlerFunc {
		return ports.MakeGetLeaderboardHandler(getLeaderboard, testAllowedOrigins(t), testLogger, noopMiddleware)
	}

	t.Run("limit handling", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			query         string
			expectedLimit int
		}{
			{query: "", expectedLimit: app.DefaultLeaderboardLimit},
			{query: "?limit=10", expectedLimit: 10},
			{query: "?limit=abc", expectedLimit: app.DefaultLeaderboardLimit},
			{query: "?limit=-5", expectedLimit: app.DefaultLeaderboardLimit},
			{query: "?limit=100000", expectedLimit: app.MaxLeaderboardLimit},
		}

		for _, c := range cases {
			t.Run(c.query, func(t *testing.T) {
				t.Parallel()

				handler := makeHandler(t, func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
					require.Equal(t, c.expectedLimit, limit)
					return entries, nil
				})

				w := httptest.NewRecorder()
				handler(w, httptest.NewRequest(http.MethodGet, "/v1/leaderboard"+c.query, nil))

				require.Equal(t, http.StatusOK, w.Code)
				body := decodeBody[leaderboardBody](t, w)
				require.Equal(t, c.expectedLimit, body.Limit)
			})
		}
	})

	t.Run("entries", func(t *testing.T) {
		t.Parallel()

		handler := makeHandler(t, func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
			return entries, nil
		})

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/v1/leaderboard", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"achieved_at":"2025-03-01T11:00:00Z"`)

		body := decodeBody[leaderboardBody](t, w)
		require.Equal(t, 2, body.TotalEntries)
		require.Len(t, body.Leaderboard, 2)

		first := body.Leaderboard[0]
		require.Equal(t, 1, first.Rank)
		require.Equal(t, int64(5000), first.Score)
		require.Equal(t, "Froggy", first.PlayerName)
		require.False(t, first.IsGuest)
		require.NotNil(t, first.Player)
		require.Equal(t, "froggy", first.Player.Username)

		second := body.Leaderboard[1]
		require.True(t, second.IsGuest)
		require.Nil(t, second.Player)
	})

	t.Run("empty leaderboard renders an empty list", func(t *testing.T) {
		t.Parallel()

		handler := makeHandler(t, func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
			return nil, nil
		})

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/v1/leaderboard", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"leaderboard":[]`)
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()

		handler := makeHandler(t, func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
			return nil, errors.New("database down")
		})

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/v1/leaderboard", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
