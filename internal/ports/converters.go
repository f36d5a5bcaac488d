package ports

import (
	"time"

	"github.com/Amund211/lilypad/internal/domain"
)

type gameSessionResponse struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"session_id"`
	PlayerID         *string    `json:"player_id"`
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
	CreatedAt        time.Time  `json:"created_at"`
	GuestSession     bool       `json:"guest_session"`
	Completed        bool       `json:"completed"`
}

func gameSessionToResponse(session domain.GameSession) gameSessionResponse {
	return gameSessionResponse{
		ID:               session.ID,
		SessionID:        session.SessionID,
		PlayerID:         session.PlayerID,
		PlayerName:       session.PlayerName,
		Seed:             session.Seed,
		StartedAt:        utcTimePtr(session.StartedAt),
		EndedAt:          utcTimePtr(session.EndedAt),
		FinalScore:       session.FinalScore,
		GameDuration:     session.GameDuration,
		MaxSpeedReached:  session.MaxSpeedReached,
		ObstaclesAvoided: session.ObstaclesAvoided,
		LiliesCollected:  session.LiliesCollected,
		HeartsCollected:  session.HeartsCollected,
		CreatedAt:        utcTime(session.CreatedAt),
		GuestSession:     session.IsGuest(),
		Completed:        session.Completed(),
	}
}

type playerStatsResponse struct {
	TotalScore        int64      `json:"total_score"`
	GamesPlayed       int64      `json:"games_played"`
	PersonalBest      int64      `json:"personal_best"`
	LastPlayedAt      *time.Time `json:"last_played_at"`
	TotalAchievements int        `json:"total_achievements"`
}

func playerStatsToResponse(stats domain.PlayerStats) playerStatsResponse {
	return playerStatsResponse{
		TotalScore:        stats.TotalScore,
		GamesPlayed:       stats.GamesPlayed,
		PersonalBest:      stats.PersonalBest,
		LastPlayedAt:      utcTimePtr(stats.LastPlayedAt),
		TotalAchievements: stats.AchievementCount,
	}
}
