package domain

import "time"

type HighScore struct {
	ID            string
	GameSessionID string
	Score         int64
	CreatedAt     time.Time
}

type LeaderboardEntry struct {
	Rank       int
	Score      int64
	PlayerName string
	AchievedAt time.Time
	IsGuest    bool

	// Only set for sessions owned by a player
	Username *string
}

type GameHistoryEntry struct {
	Session    GameSession
	HighScores []HighScore

	// Number of achievements first earned in this session
	AchievementsEarned int
}

type GameHistory struct {
	Entries    []GameHistoryEntry
	TotalGames int
}
