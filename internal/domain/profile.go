package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// PlayerProfile holds the optional self description shown on a player's page.
// Every player has at most one, created empty on first access.
type PlayerProfile struct {
	PlayerID string

	Bio               *string
	FavoriteOtterFact *string
	Title             *string
	ProfileBannerURL  *string
	Location          *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type PlayerWithProfile struct {
	Player  Player
	Profile PlayerProfile
}

const (
	maxBioLength               = 500
	maxFavoriteOtterFactLength = 500
	maxTitleLength             = 50
	maxProfileBannerURLLength  = 500
	maxLocationLength          = 100
)

// ProfileUpdate changes a player and their profile together.
// Fields that are nil or blank are left unchanged.
type ProfileUpdate struct {
	Username    *string
	DisplayName *string

	Bio               *string
	FavoriteOtterFact *string
	Title             *string
	ProfileBannerURL  *string
	Location          *string
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func (u ProfileUpdate) Validate() error {
	if !isBlank(u.Username) {
		length := utf8.RuneCountInString(*u.Username)
		if length < 3 || length > 20 {
			return fmt.Errorf("%w: username must be between 3 and 20 characters", ErrInvalidProfile)
		}
	}
	if !isBlank(u.DisplayName) && utf8.RuneCountInString(*u.DisplayName) > 30 {
		return fmt.Errorf("%w: display name must be at most 30 characters", ErrInvalidProfile)
	}

	for _, field := range []struct {
		name      string
		value     *string
		maxLength int
	}{
		{"bio", u.Bio, maxBioLength},
		{"favorite otter fact", u.FavoriteOtterFact, maxFavoriteOtterFactLength},
		{"title", u.Title, maxTitleLength},
		{"profile banner url", u.ProfileBannerURL, maxProfileBannerURLLength},
		{"location", u.Location, maxLocationLength},
	} {
		if isBlank(field.value) {
			continue
		}
		if utf8.RuneCountInString(*field.value) > field.maxLength {
			return fmt.Errorf("%w: %s must be at most %d characters", ErrInvalidProfile, field.name, field.maxLength)
		}
	}

	if !isBlank(u.ProfileBannerURL) && !isWebURL(*u.ProfileBannerURL) {
		return fmt.Errorf("%w: profile banner url must be a valid URL", ErrInvalidProfile)
	}

	return nil
}

func isWebURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// ApplyTo returns a copy of current with the non-blank fields of the update assigned
func (u ProfileUpdate) ApplyTo(current PlayerWithProfile) PlayerWithProfile {
	assign := func(target **string, value *string) {
		if !isBlank(value) {
			v := *value
			*target = &v
		}
	}

	if !isBlank(u.Username) {
		current.Player.Username = *u.Username
	}
	assign(&current.Player.DisplayName, u.DisplayName)

	assign(&current.Profile.Bio, u.Bio)
	assign(&current.Profile.FavoriteOtterFact, u.FavoriteOtterFact)
	assign(&current.Profile.Title, u.Title)
	assign(&current.Profile.ProfileBannerURL, u.ProfileBannerURL)
	assign(&current.Profile.Location, u.Location)

	return current
}
