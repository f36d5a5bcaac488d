package ports

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
)

type getPlayerStatsResponse struct {
	PlayerStats playerStatsResponse `json:"player_stats"`
}

func MakeGetPlayerStatsHandler(
	getPlayerStats app.GetPlayerStats,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildAPIMiddleware(rootLogger, sentryMiddleware, allowedOrigins, readLimits)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		playerID, authenticated, valid := playerIDFromRequest(r)
		if !authenticated || !valid {
			writeErrors(ctx, w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		stats, err := getPlayerStats(ctx, playerID)
		if errors.Is(err, domain.ErrPlayerNotFound) {
			writeErrors(ctx, w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if err != nil {
			// NOTE: GetPlayerStats implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "failed to get player stats", "error", err.Error())
			writeErrors(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(ctx, w, http.StatusOK, getPlayerStatsResponse{
			PlayerStats: playerStatsToResponse(stats),
		})
	}

	return middleware(handler)
}
