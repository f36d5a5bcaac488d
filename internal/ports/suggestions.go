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
)

type createSuggestionRequest struct {
	Suggestion *struct {
		Note       string  `json:"note"`
		PlayerName *string `json:"player_name"`
	} `json:"suggestion"`
}

type suggestionResponse struct {
	ID        string    `json:"id"`
	Note      string    `json:"note"`
	PlayerID  *string   `json:"player_id"`
	CreatedAt time.Time `json:"created_at"`
}

type createSuggestionResponse struct {
	Suggestion suggestionResponse `json:"suggestion"`
}

func MakeCreateSuggestionHandler(
	createSuggestion app.CreateSuggestion,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildAPIMiddleware(rootLogger, sentryMiddleware, allowedOrigins, writeLimits)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var request createSuggestionRequest
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
		if err := decoder.Decode(&request); err != nil {
			logging.FromContext(ctx).InfoContext(ctx, "invalid request body", "error", err.Error())
			writeErrors(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}

		submission := domain.SuggestionSubmission{}
		if request.Suggestion != nil {
			submission.Note = request.Suggestion.Note
			if request.Suggestion.PlayerName != nil {
				playerName := strings.TrimSpace(*request.Suggestion.PlayerName)
				submission.PlayerName = &playerName
			}
		}

		suggestion, err := createSuggestion(ctx, submission)
		if errors.Is(err, domain.ErrInvalidSuggestion) {
			writeErrors(ctx, w, http.StatusUnprocessableEntity, validationMessage(err, domain.ErrInvalidSuggestion))
			return
		} else if errors.Is(err, domain.ErrPlayerNotFound) && submission.PlayerName != nil {
			writeErrors(ctx, w, http.StatusUnprocessableEntity, fmt.Sprintf("player with username '%s' not found", *submission.PlayerName))
			return
		}
		if err != nil {
			// NOTE: CreateSuggestion implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "failed to create suggestion", "error", err.Error())
			writeErrors(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(ctx, w, http.StatusCreated, createSuggestionResponse{
			Suggestion: suggestionResponse{
				ID:        suggestion.ID,
				Note:      suggestion.Note,
				PlayerID:  suggestion.PlayerID,
				CreatedAt: utcTime(suggestion.CreatedAt),
			},
		})
	}

	return middleware(handler)
}
