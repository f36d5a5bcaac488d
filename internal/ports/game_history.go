package ports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
	"github.com/Amund211/lilypad/internal/reporting"
)

type gameHistoryStats struct {
	LiliesCollected  *int     `json:"lilies_collected"`
	ObstaclesAvoided *int     `json:"obstacles_avoided"`
	HeartsCollected  *int     `json:"hearts_collected"`
	MaxSpeedReached  *float64 `json:"max_speed_reached"`
}

type gameHistoryHighScore struct {
	ID        string    `json:"id"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type gameHistoryEntryResponse struct {
	SessionID          string                 `json:"session_id"`
	FinalScore         *int64                 `json:"final_score"`
	Seed               *int64                 `json:"seed"`
	StartedAt          *time.Time             `json:"started_at"`
	EndedAt            *time.Time             `json:"ended_at"`
	GameDuration       *float64               `json:"game_duration"`
	Stats              gameHistoryStats       `json:"stats"`
	HighScores         []gameHistoryHighScore `json:"high_scores"`
	AchievementsEarned int                    `json:"achievements_earned"`
}

type gameHistoryPlayer struct {
	Username   string `json:"username"`
	TotalGames int    `json:"total_games"`
}

type gameHistoryPagination struct {
	Limit    int `json:"limit"`
	Offset   int `json:"offset"`
	Total    int `json:"total"`
	Returned int `json:"returned"`
}

type gameHistoryResponse struct {
	Player      gameHistoryPlayer          `json:"player"`
	GameHistory []gameHistoryEntryResponse `json:"game_history"`
	Pagination  gameHistoryPagination      `json:"pagination"`
}

func MakeGetGameHistoryHandler(
	getGameHistory app.GetGameHistory,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildAPIMiddleware(rootLogger, sentryMiddleware, allowedOrigins, readLimits)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		username := r.PathValue("username")

		ctx = logging.AddMetaToContext(ctx, slog.String("username", username))
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{
			"username": username,
		})

		if !usernameLengthIsValid(username) {
			writeErrors(ctx, w, http.StatusNotFound, "Player not found")
			return
		}

		// Unparseable values fall back to the defaults
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		result, err := getGameHistory(ctx, username, limit, offset)
		if errors.Is(err, domain.ErrPlayerNotFound) {
			writeErrors(ctx, w, http.StatusNotFound, "Player not found")
			return
		}
		if err != nil {
			// NOTE: GetGameHistory implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "failed to get game history", "error", err.Error())
			writeErrors(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		entries := make([]gameHistoryEntryResponse, 0, len(result.History.Entries))
		for _, entry := range result.History.Entries {
			session := entry.Session

			highScores := make([]gameHistoryHighScore, 0, len(entry.HighScores))
			for _, highScore := range entry.HighScores {
				highScores = append(highScores, gameHistoryHighScore{
					ID:        highScore.ID,
					Score:     highScore.Score,
					CreatedAt: utcTime(highScore.CreatedAt),
				})
			}

			entries = append(entries, gameHistoryEntryResponse{
				SessionID:    session.SessionID,
				FinalScore:   session.FinalScore,
				Seed:         session.Seed,
				StartedAt:    utcTimePtr(session.StartedAt),
				EndedAt:      utcTimePtr(session.EndedAt),
				GameDuration: session.GameDuration,
				Stats: gameHistoryStats{
					LiliesCollected:  session.LiliesCollected,
					ObstaclesAvoided: session.ObstaclesAvoided,
					HeartsCollected:  session.HeartsCollected,
					MaxSpeedReached:  session.MaxSpeedReached,
				},
				HighScores:         highScores,
				AchievementsEarned: entry.AchievementsEarned,
			})
		}

		writeJSON(ctx, w, http.StatusOK, gameHistoryResponse{
			Player: gameHistoryPlayer{
				Username:   result.Player.Username,
				TotalGames: result.History.TotalGames,
			},
			GameHistory: entries,
			Pagination: gameHistoryPagination{
				Limit:    result.Limit,
				Offset:   result.Offset,
				Total:    result.History.TotalGames,
				Returned: len(entries),
			},
		})
	}

	return middleware(handler)
}
