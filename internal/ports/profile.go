package ports

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
)

type profileFields struct {
	Bio               *string `json:"bio"`
	FavoriteOtterFact *string `json:"favorite_otter_fact"`
	Title             *string `json:"title"`
	ProfileBannerURL  *string `json:"profile_banner_url"`
	Location          *string `json:"location"`
}

type updateProfileRequest struct {
	Player *struct {
		Username    *string        `json:"username"`
		DisplayName *string        `json:"display_name"`
		Profile     *profileFields `json:"profile"`
	} `json:"player"`
}

type profilePlayerResponse struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	DisplayName string        `json:"display_name"`
	Profile     profileFields `json:"profile"`
}

type profileResponse struct {
	Player  profilePlayerResponse `json:"player"`
	Message string                `json:"message,omitempty"`
}

func profileToResponse(result domain.PlayerWithProfile) profileResponse {
	return profileResponse{
		Player: profilePlayerResponse{
			ID:          result.Player.ID,
			Username:    result.Player.Username,
			DisplayName: result.Player.DisplayNameOrUsername(),
			Profile: profileFields{
				Bio:               result.Profile.Bio,
				FavoriteOtterFact: result.Profile.FavoriteOtterFact,
				Title:             result.Profile.Title,
				ProfileBannerURL:  result.Profile.ProfileBannerURL,
				Location:          result.Profile.Location,
			},
		},
	}
}

func MakeGetPlayerProfileHandler(
	getPlayerProfile app.GetPlayerProfile,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildAPIMiddleware(rootLogger, sentryMiddleware, allowedOrigins, readLimits)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		playerID, authenticated, valid := playerIDFromRequest(r)
		if !authenticated || !valid {
			writeErrors(ctx, w, http.StatusUnauthorized, "You must be logged in to update your profile")
			return
		}

		result, err := getPlayerProfile(ctx, playerID)
		if errors.Is(err, domain.ErrPlayerNotFound) {
			writeErrors(ctx, w, http.StatusUnauthorized, "You must be logged in to update your profile")
			return
		}
		if err != nil {
			// NOTE: GetPlayerProfile implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "failed to get player profile", "error", err.Error())
			writeErrors(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(ctx, w, http.StatusOK, profileToResponse(result))
	}

	return middleware(handler)
}

// MakeUpdatePlayerProfileHandler applies a partial update. Absent and blank fields are left unchanged.
func MakeUpdatePlayerProfileHandler(
	updatePlayerProfile app.UpdatePlayerProfile,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildAPIMiddleware(rootLogger, sentryMiddleware, allowedOrigins, writeLimits)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		playerID, authenticated, valid := playerIDFromRequest(r)
		if !authenticated || !valid {
			writeErrors(ctx, w, http.StatusUnauthorized, "You must be logged in to update your profile")
			return
		}

		var request updateProfileRequest
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

		update := domain.ProfileUpdate{
			Username:    request.Player.Username,
			DisplayName: request.Player.DisplayName,
		}
		if update.Username != nil {
			trimmed := strings.TrimSpace(*update.Username)
			update.Username = &trimmed
		}
		if profile := request.Player.Profile; profile != nil {
			update.Bio = profile.Bio
			update.FavoriteOtterFact = profile.FavoriteOtterFact
			update.Title = profile.Title
			update.ProfileBannerURL = profile.ProfileBannerURL
			update.Location = profile.Location
		}

		result, err := updatePlayerProfile(ctx, playerID, update)
		if errors.Is(err, domain.ErrInvalidProfile) {
			writeErrors(ctx, w, http.StatusUnprocessableEntity, validationMessage(err, domain.ErrInvalidProfile))
			return
		} else if errors.Is(err, domain.ErrUsernameTaken) {
			writeErrors(ctx, w, http.StatusConflict, "username has already been taken")
			return
		} else if errors.Is(err, domain.ErrPlayerNotFound) {
			writeErrors(ctx, w, http.StatusUnauthorized, "You must be logged in to update your profile")
			return
		}
		if err != nil {
			// NOTE: UpdatePlayerProfile implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "failed to update player profile", "error", err.Error())
			writeErrors(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		response := profileToResponse(result)
		response.Message = "Profile updated successfully."
		writeJSON(ctx, w, http.StatusOK, response)
	}

	return middleware(handler)
}
