package domain

import (
	"fmt"
	"time"
)

type GameSession struct {
	ID        string
	SessionID string

	// nil for guest sessions
	PlayerID   *string
	PlayerName *string
	Seed       *int64

	StartedAt *time.Time
	EndedAt   *time.Time

	FinalScore       *int64
	LiliesCollected  *int
	HeartsCollected  *int
	ObstaclesAvoided *int
	MaxSpeedReached  *float64
	GameDuration     *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Completed reports whether the session has both an end time and a final score
func (s GameSession) Completed() bool {
	return s.EndedAt != nil && s.FinalScore != nil
}

func (s GameSession) IsGuest() bool {
	return s.PlayerID == nil
}

func (s GameSession) OwnedBy(playerID string) bool {
	return s.PlayerID != nil && *s.PlayerID == playerID
}

// Counter accessors treat missing values as zero

func (s GameSession) Lilies() int {
	return intOrZero(s.LiliesCollected)
}

func (s GameSession) Hearts() int {
	return intOrZero(s.HeartsCollected)
}

func (s GameSession) Obstacles() int {
	return intOrZero(s.ObstaclesAvoided)
}

func (s GameSession) MaxSpeed() float64 {
	if s.MaxSpeedReached == nil {
		return 0
	}
	return *s.MaxSpeedReached
}

func (s GameSession) Duration() float64 {
	if s.GameDuration == nil {
		return 0
	}
	return *s.GameDuration
}

func (s GameSession) Score() int64 {
	if s.FinalScore == nil {
		return 0
	}
	return *s.FinalScore
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// GameSessionSubmission is a create-or-update of a session keyed by SessionID.
// Only non-nil attributes are assigned to the stored session.
type GameSessionSubmission struct {
	SessionID string

	// Set by the caller when the submitting player is authenticated
	PlayerID *string

	PlayerName       *string
	Seed             *int64
	StartedAt        *time.Time
	EndedAt          *time.Time
	FinalScore       *int64
	LiliesCollected  *int
	HeartsCollected  *int
	ObstaclesAvoided *int
	MaxSpeedReached  *float64
	GameDuration     *float64
}

func (s GameSessionSubmission) Validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidSession)
	}
	if len(s.SessionID) > 255 {
		return fmt.Errorf("%w: session_id is too long", ErrInvalidSession)
	}
	if s.PlayerName != nil && len(*s.PlayerName) > 50 {
		return fmt.Errorf("%w: player_name is too long", ErrInvalidSession)
	}
	if s.FinalScore != nil && *s.FinalScore < 0 {
		return fmt.Errorf("%w: final_score must be non-negative", ErrInvalidSession)
	}
	for name, counter := range map[string]*int{
		"lilies_collected":  s.LiliesCollected,
		"hearts_collected":  s.HeartsCollected,
		"obstacles_avoided": s.ObstaclesAvoided,
	} {
		if counter != nil && *counter < 0 {
			return fmt.Errorf("%w: %s must be non-negative", ErrInvalidSession, name)
		}
	}
	if s.MaxSpeedReached != nil && *s.MaxSpeedReached < 0 {
		return fmt.Errorf("%w: max_speed_reached must be non-negative", ErrInvalidSession)
	}
	if s.GameDuration != nil && *s.GameDuration < 0 {
		return fmt.Errorf("%w: game_duration must be non-negative", ErrInvalidSession)
	}
	if s.StartedAt != nil && s.EndedAt != nil && s.EndedAt.Before(*s.StartedAt) {
		return fmt.Errorf("%w: ended_at is before started_at", ErrInvalidSession)
	}
	return nil
}

// CheckOwnership rejects submissions that would move a session to a different player
func (s GameSessionSubmission) CheckOwnership(session GameSession) error {
	if session.PlayerID == nil || s.PlayerID == nil {
		return nil
	}
	if *session.PlayerID != *s.PlayerID {
		return fmt.Errorf("%w: session belongs to another player", ErrInvalidSession)
	}
	return nil
}

// ApplyTo returns a copy of session with the submitted attributes assigned
func (s GameSessionSubmission) ApplyTo(session GameSession) GameSession {
	session.SessionID = s.SessionID
	if s.PlayerID != nil {
		session.PlayerID = s.PlayerID
	}
	if s.PlayerName != nil {
		session.PlayerName = s.PlayerName
	}
	if s.Seed != nil {
		session.Seed = s.Seed
	}
	if s.StartedAt != nil {
		session.StartedAt = s.StartedAt
	}
	if s.EndedAt != nil {
		session.EndedAt = s.EndedAt
	}
	if s.FinalScore != nil {
		session.FinalScore = s.FinalScore
	}
	if s.LiliesCollected != nil {
		session.LiliesCollected = s.LiliesCollected
	}
	if s.HeartsCollected != nil {
		session.HeartsCollected = s.HeartsCollected
	}
	if s.ObstaclesAvoided != nil {
		session.ObstaclesAvoided = s.ObstaclesAvoided
	}
	if s.MaxSpeedReached != nil {
		session.MaxSpeedReached = s.MaxSpeedReached
	}
	if s.GameDuration != nil {
		session.GameDuration = s.GameDuration
	}
	return session
}

// ShouldDispatch reports whether saving previous -> current warrants running the
// post-completion work. previous is nil when the session was just created.
//
// Re-saving a completed session dispatches again when any value the work reads changed:
// the result, the counters achievements are evaluated against, or the owner when a
// guest session is attached to a player.
func ShouldDispatch(previous *GameSession, current GameSession) bool {
	if !current.Completed() {
		return false
	}
	if previous == nil || !previous.Completed() {
		return true
	}

	if previous.PlayerID == nil && current.PlayerID != nil {
		return true
	}
	if !previous.EndedAt.Equal(*current.EndedAt) {
		return true
	}

	return !equalPtr(previous.FinalScore, current.FinalScore) ||
		!equalPtr(previous.LiliesCollected, current.LiliesCollected) ||
		!equalPtr(previous.HeartsCollected, current.HeartsCollected) ||
		!equalPtr(previous.ObstaclesAvoided, current.ObstaclesAvoided) ||
		!equalPtr(previous.MaxSpeedReached, current.MaxSpeedReached) ||
		!equalPtr(previous.GameDuration, current.GameDuration)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
