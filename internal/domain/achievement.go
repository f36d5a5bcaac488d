package domain

import "time"

type Achievement struct {
	ID              string
	AchievementType string
	Name            string
	Description     string
	Points          int
}

type EarnedAchievement struct {
	Achievement   Achievement
	PlayerID      string
	GameSessionID *string
	EarnedAt      time.Time
}
