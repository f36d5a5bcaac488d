package domain_test

import (
	"strings"
	"testing"

	"github.com/Amund211/lilypad/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestDisplayNameOrUsername(t *testing.T) {
	t.Parallel()

	displayName := "Otter Queen"
	empty := ""

	require.Equal(t, "otter", domain.Player{Username: "otter"}.DisplayNameOrUsername())
	require.Equal(t, "otter", domain.Player{Username: "otter", DisplayName: &empty}.DisplayNameOrUsername())
	require.Equal(t, "Otter Queen", domain.Player{Username: "otter", DisplayName: &displayName}.DisplayNameOrUsername())
}

func TestPlayerRegistrationValidate(t *testing.T) {
	t.Parallel()

	strPtr := func(v string) *string { return &v }

	cases := []struct {
		name         string
		registration domain.PlayerRegistration
		valid        bool
	}{
		{"minimal", domain.PlayerRegistration{Username: "ott"}, true},
		{"max length", domain.PlayerRegistration{Username: strings.Repeat("o", 20)}, true},
		{"multibyte counted as runes", domain.PlayerRegistration{Username: "åøæ"}, true},
		{"with display name", domain.PlayerRegistration{Username: "otter", DisplayName: strPtr(strings.Repeat("d", 30))}, true},
		{"too short", domain.PlayerRegistration{Username: "ot"}, false},
		{"empty", domain.PlayerRegistration{}, false},
		{"too long", domain.PlayerRegistration{Username: strings.Repeat("o", 21)}, false},
		{"display name too long", domain.PlayerRegistration{Username: "otter", DisplayName: strPtr(strings.Repeat("d", 31))}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			err := c.registration.Validate()
			if c.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrInvalidPlayer)
		})
	}
}
