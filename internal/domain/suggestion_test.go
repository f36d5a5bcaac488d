package domain_test

import (
	"strings"
	"testing"

	"github.com/Amund211/lilypad/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestSuggestionSubmissionValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		note  string
		valid bool
	}{
		{"minimal", "abc", true},
		{"max length", strings.Repeat("n", 1000), true},
		{"multibyte counted as runes", "åøæ", true},
		{"empty", "", false},
		{"blank", "     ", false},
		{"too short", "ab", false},
		{"too long", strings.Repeat("n", 1001), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			err := domain.SuggestionSubmission{Note: c.note}.Validate()
			if c.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrInvalidSuggestion)
		})
	}
}
