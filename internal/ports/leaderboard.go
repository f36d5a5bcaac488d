package ports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/logging"
)

type leaderboardEntryPlayer struct {
	Username string `json:"username"`
}

type leaderboardEntryResponse struct {
	Rank       int                     `json:"rank"`
	Score      int64                   `json:"score"`
	PlayerName string                  `json:"player_name"`
	AchievedAt time.Time               `json:"achieved_at"`
	IsGuest    bool                    `json:"is_guest"`
	Player     *leaderboardEntryPlayer `json:"player,omitempty"`
}

type leaderboardResponse struct {
	Leaderboard  []leaderboardEntryResponse `json:"leaderboard"`
	TotalEntries int                        `json:"total_entries"`
	Limit        int                        `json:"limit"`
}

func MakeGetLeaderboardHandler(
	getLeaderboard app.GetLeaderboard,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildAPIMiddleware(rootLogger, sentryMiddleware, allowedOrigins, readLimits)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Unparseable limits fall back to the default
		requested, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		limit := app.NormalizeLeaderboardLimit(requested)

		entries, err := getLeaderboard(ctx, limit)
		if err != nil {
			// NOTE: GetLeaderboard implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "failed to get leaderboard", "error", err.Error())
			writeErrors(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		response := leaderboardResponse{
			Leaderboard:  make([]leaderboardEntryResponse, 0, len(entries)),
			TotalEntries: len(entries),
			Limit:        limit,
		}
		for _, entry := range entries {
			entryResponse := leaderboardEntryResponse{
				Rank:       entry.Rank,
				Score:      entry.Score,
				PlayerName: entry.PlayerName,
				AchievedAt: utcTime(entry.AchievedAt),
				IsGuest:    entry.IsGuest,
			}
			if entry.Username != nil {
				entryResponse.Player = &leaderboardEntryPlayer{Username: *entry.Username}
			}
			response.Leaderboard = append(response.Leaderboard, entryResponse)
		}

		writeJSON(ctx, w, http.StatusOK, response)
	}

	return middleware(handler)
}
