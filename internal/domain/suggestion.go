package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Suggestion is free-form player feedback. It is attributed to a player when one is named.
type Suggestion struct {
	ID        string
	Note      string
	PlayerID  *string
	CreatedAt time.Time
}

type SuggestionSubmission struct {
	Note string
	// Username of the suggesting player, if any
	PlayerName *string
}

func (s SuggestionSubmission) Validate() error {
	if strings.TrimSpace(s.Note) == "" {
		return fmt.Errorf("%w: note can't be blank", ErrInvalidSuggestion)
	}
	length := utf8.RuneCountInString(s.Note)
	if length < 3 || length > 1000 {
		return fmt.Errorf("%w: note must be between 3 and 1000 characters", ErrInvalidSuggestion)
	}
	return nil
}
