package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

type Player struct {
	ID          string
	Username    string
	DisplayName *string

	TotalScore   int64
	GamesPlayed  int64
	LastPlayedAt *time.Time

	CreatedAt time.Time
}

func (p Player) DisplayNameOrUsername() string {
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	return p.Username
}

type PlayerRegistration struct {
	Username    string
	DisplayName *string
}

func (r PlayerRegistration) Validate() error {
	length := utf8.RuneCountInString(r.Username)
	if length < 3 || length > 20 {
		return fmt.Errorf("%w: username must be between 3 and 20 characters", ErrInvalidPlayer)
	}
	if r.DisplayName != nil && utf8.RuneCountInString(*r.DisplayName) > 30 {
		return fmt.Errorf("%w: display name must be at most 30 characters", ErrInvalidPlayer)
	}
	return nil
}

type PlayerStats struct {
	PlayerID     string
	TotalScore   int64
	GamesPlayed  int64
	LastPlayedAt *time.Time

	// Max final score over the player's completed sessions, computed on read
	PersonalBest int64

	AchievementCount int
}
