package ports

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/logging"
	"github.com/Amund211/lilypad/internal/reporting"
)

var achievementBadges = map[string]string{
	"lily_collector":  "🌸",
	"heart_hoarder":   "💖",
	"speed_demon":     "⚡",
	"obstacle_master": "🎯",
	"marathon_runner": "🏃",
}

const defaultAchievementBadge = "🏅"

func badgeFor(achievementType string) string {
	if badge, ok := achievementBadges[achievementType]; ok {
		return badge
	}
	return defaultAchievementBadge
}

type earnedAchievementResponse struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	AchievementType string    `json:"achievement_type"`
	Points          int       `json:"points"`
	BadgeURL        string    `json:"badge_url"`
	CollectedAt     time.Time `json:"collected_at"`
}

type playerAchievementsResponse struct {
	Username          string                      `json:"username"`
	TotalAchievements int                         `json:"total_achievements"`
	TotalPoints       int                         `json:"total_points"`
	Achievements      []earnedAchievementResponse `json:"achievements"`
}

func MakeGetPlayerAchievementsHandler(
	getPlayerAchievements app.GetPlayerAchievements,
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

		result, err := getPlayerAchievements(ctx, username)
		if errors.Is(err, domain.ErrPlayerNotFound) {
			writeErrors(ctx, w, http.StatusNotFound, "Player not found")
			return
		}
		if err != nil {
			// NOTE: GetPlayerAchievements implementations handle their own error reporting
			logging.FromContext(ctx).ErrorContext(ctx, "failed to get player achievements", "error", err.Error())
			writeErrors(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		response := playerAchievementsResponse{
			Username:          result.Player.Username,
			TotalAchievements: len(result.Achievements),
			Achievements:      make([]earnedAchievementResponse, 0, len(result.Achievements)),
		}
		for _, earned := range result.Achievements {
			achievement := earned.Achievement
			response.TotalPoints += achievement.Points
			response.Achievements = append(response.Achievements, earnedAchievementResponse{
				Name:            achievement.Name,
				Description:     achievement.Description,
				AchievementType: achievement.AchievementType,
				Points:          achievement.Points,
				BadgeURL:        badgeFor(achievement.AchievementType),
				CollectedAt:     utcTime(earned.EarnedAt),
			})
		}

		writeJSON(ctx, w, http.StatusOK, response)
	}

	return middleware(handler)
}

// Usernames are 3 to 20 characters. Longer path values can not match a player.
func usernameLengthIsValid(username string) bool {
	return len(username) > 0 && len(username) <= 100
}
