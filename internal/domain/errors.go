package domain

import "errors"

var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrSessionNotFound   = errors.New("game session not found")
	ErrLockTimeout       = errors.New("timed out waiting for lock")
	ErrInvalidSession    = errors.New("invalid game session")
	ErrInvalidPlayer     = errors.New("invalid player")
	ErrUsernameTaken     = errors.New("username taken")
	ErrInvalidProfile    = errors.New("invalid profile")
	ErrInvalidSuggestion = errors.New("invalid suggestion")

	// The unit was requeued or claimed by another worker since it was claimed
	ErrLeaseLost = errors.New("work unit lease lost")

	// Work units that can never succeed, no matter how often they are retried
	ErrInvalidWorkUnit = errors.New("invalid work unit")
)
