package ports

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
	"github.com/Amund211/lilypad/internal/reporting"
)

const maxRequestBodyBytes = 64 * 1024

type gameSessionRequest struct {
	GameSession *struct {
		SessionID        string     `json:"session_id"`
		PlayerName       *string    `json:"player_name"`
		Seed             *int64     `json:"seed"`
		StartedAt        *time.Time `json:"started_at"`
		EndedAt          *time.Time `json:"ended_at"`
		FinalScore       *int64     `json:"final_score"`
		GameDuration     *float64   `json:"game_duration"`
		MaxSpeedReached  *float64   `json:"max_speed_reached"`
		ObstaclesAvoided *int       `json:"obstacles_avoided"`
		LiliesCollected  *int       `json:"lilies_collected"`
		HeartsCollected  *int       `json:"hearts_collected"`
	} `json:"game_session"`
}

type submitGameSessionResponse struct {
	GameSession gameSessionResponse  `json:"game_session"`
	PlayerStats *playerStatsResponse `json:"player_stats,omitempty"`
}

func MakeSubmitGameSessionHandler(
	submitGameSession app.SubmitGameSession,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildAPIMiddleware(rootLogger, sentryMiddleware, allowedOrigins, writeLimits)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		playerID, authenticated, valid := playerIDFromRequest(r)
		if !valid {
			writeErrors(ctx, w, http.StatusBadRequest, "invalid player id")
			return
		}

		var request gameSessionRequest
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
		if err := decoder.Decode(&request); err != nil {
			logging.FromContext(ctx).InfoContext(ctx, "invalid request body", "error", err.Error())
			writeErrors(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}
		if request.GameSession == nil {
			writeErrors(ctx, w, http.StatusBadRequest, "missing game_session")
			return
		}

		params := request.GameSession
		submission := domain.GameSessionSubmission{
			SessionID:        strings.TrimSpace(params.SessionID),
			PlayerName:       params.PlayerName,
			Seed:             params.Seed,
			StartedAt:        params.StartedAt,
			EndedAt:          params.EndedAt,
			FinalScore:       params.FinalScore,
			GameDuration:     params.GameDuration,
			MaxSpeedReached:  params.MaxSpeedReached,
			ObstaclesAvoided: params.ObstaclesAvoided,
			LiliesCollected:  params.LiliesCollected,
			HeartsCollected:  params.HeartsCollected,
		}
		if authenticated {
			submission.PlayerID = &playerID
		}

		ctx = logging.AddMetaToContext(ctx, slog.String("sessionId", submission.SessionID))
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{
			"sessionId": submission.SessionID,
		})

		result, err := submitGameSession(ctx, submission)
		if errors.Is(err, domain.ErrInvalidSession) {
			writeErrors(ctx, w, http.StatusUnprocessableEntity, validationMessage(err, domain.ErrInvalidSession))
			return
		} else if errors.Is(err, domain.ErrPlayerNotFound) {
			writeErrors(ctx, w, http.StatusUnauthorized, "unknown player")
			return
		}
		if err != nil {
			// NOTE: SubmitGameSession implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "failed to submit game session", "error", err.Error())
			writeErrors(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		response := submitGameSessionResponse{
			GameSession: gameSessionToResponse(result.Session),
		}
		if result.PlayerStats != nil {
			stats := playerStatsToResponse(*result.PlayerStats)
			response.PlayerStats = &stats
		}

		writeJSON(ctx, w, http.StatusCreated, response)
	}

	return middleware(handler)
}

// validationMessage strips the wrapping down to the detail following sentinel
func validationMessage(err error, sentinel error) string {
	message := err.Error()
	prefix := fmt.Sprintf("%s: ", sentinel.Error())
	if i := strings.Index(message, prefix); i != -1 {
		return message[i+len(prefix):]
	}
	return sentinel.Error()
}
