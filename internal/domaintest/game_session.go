package domaintest

import (
	"time"

	"github.com/Amund211/lilypad/internal/domain"
)

type gameSessionBuilder struct {
	session *domain.GameSession
}

func NewGameSessionBuilder(id, sessionID string, startedAt time.Time) *gameSessionBuilder {
	return &gameSessionBuilder{
		session: &domain.GameSession{
			ID:        id,
			SessionID: sessionID,
			StartedAt: &startedAt,
			CreatedAt: startedAt,
			UpdatedAt: startedAt,
		},
	}
}

func (b *gameSessionBuilder) WithPlayer(playerID string) *gameSessionBuilder {
	b.session.PlayerID = &playerID
	return b
}

func (b *gameSessionBuilder) WithPlayerName(name string) *gameSessionBuilder {
	b.session.PlayerName = &name
	return b
}

// Completed sets both the end time and the final score
func (b *gameSessionBuilder) Completed(endedAt time.Time, finalScore int64) *gameSessionBuilder {
	b.session.EndedAt = &endedAt
	b.session.FinalScore = &finalScore
	return b
}

func (b *gameSessionBuilder) WithEndedAt(endedAt time.Time) *gameSessionBuilder {
	b.session.EndedAt = &endedAt
	return b
}

func (b *gameSessionBuilder) WithFinalScore(score int64) *gameSessionBuilder {
	b.session.FinalScore = &score
	return b
}

func (b *gameSessionBuilder) WithLilies(lilies int) *gameSessionBuilder {
	b.session.LiliesCollected = &lilies
	return b
}

func (b *gameSessionBuilder) WithHearts(hearts int) *gameSessionBuilder {
	b.session.HeartsCollected = &hearts
	return b
}

func (b *gameSessionBuilder) WithObstacles(obstacles int) *gameSessionBuilder {
	b.session.ObstaclesAvoided = &obstacles
	return b
}

func (b *gameSessionBuilder) WithMaxSpeed(speed float64) *gameSessionBuilder {
	b.session.MaxSpeedReached = &speed
	return b
}

func (b *gameSessionBuilder) WithDuration(seconds float64) *gameSessionBuilder {
	b.session.GameDuration = &seconds
	return b
}

func (b *gameSessionBuilder) Build() domain.GameSession {
	return *b.session
}

func (b *gameSessionBuilder) BuildPtr() *domain.GameSession {
	// Make a copy, so further mutations to the builder don't affect the returned session
	session := b.Build()
	return &session
}
