package ports

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
)

type createPlayerRequest struct {
	Player *struct {
		Username    string  `json:"username"`
		DisplayName *string `json:"display_name"`
	} `json:"player"`
}

type playerResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type createPlayerResponse struct {
	Player playerResponse `json:"player"`
}

func MakeCreatePlayerHandler(
	createPlayer app.CreatePlayer,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildAPIMiddleware(rootLogger, sentryMiddleware, allowedOrigins, writeLimits)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var request createPlayerRequest
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
		if err := decoder.Decode(&request); err != nil {
			logging.FromContext(ctx).InfoContext(ctx, "invalid request body", "error", err.Error())
			writeErrors(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}
		if request.Player == nil {
			writeErrors(ctx, w, http.StatusBadRequest, "missing player")
			return
		}

		registration := domain.PlayerRegistration{
			Username:    strings.TrimSpace(request.Player.Username),
			DisplayName: request.Player.DisplayName,
		}

		player, err := createPlayer(ctx, registration)
		if errors.Is(err, domain.ErrInvalidPlayer) {
			writeErrors(ctx, w, http.StatusUnprocessableEntity, validationMessage(err, domain.ErrInvalidPlayer))
			return
		} else if errors.Is(err, domain.ErrUsernameTaken) {
			writeErrors(ctx, w, http.StatusConflict, "username has already been taken")
			return
		}
		if err != nil {
			// NOTE: CreatePlayer implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "failed to create player", "error", err.Error())
			writeErrors(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(ctx, w, http.StatusCreated, createPlayerResponse{
			Player: playerResponse{
				ID:          player.ID,
				Username:    player.Username,
				DisplayName: player.DisplayNameOrUsername(),
				CreatedAt:   utcTime(player.CreatedAt),
			},
		})
	}

	return middleware(handler)
}
