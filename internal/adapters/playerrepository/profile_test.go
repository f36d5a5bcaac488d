package playerrepository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/Amund211/lilypad/internal/adapters/database"
	"github.com/Amund211/lilypad/internal/domain"
)

func TestPostgresProfiles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping db tests in short mode.")
	}
	t.Parallel()

	db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
	require.NoError(t, err)

	strPtr := func(v string) *string { return &v }

	t.Run("profiles are created empty on first read", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		p, schema := newPostgres(t, db, "profile_first_read", time.Second)
		player, err := p.CreatePlayer(ctx, domain.PlayerRegistration{Username: "otter"})
		require.NoError(t, err)

		result, err := p.GetProfile(ctx, player.ID)
		require.NoError(t, err)
		require.Equal(t, player.ID, result.Player.ID)
		require.Equal(t, "otter", result.Player.Username)
		require.Equal(t, player.ID, result.Profile.PlayerID)
		require.Nil(t, result.Profile.Bio)
		require.Nil(t, result.Profile.ProfileBannerURL)

		again, err := p.GetProfile(ctx, player.ID)
		require.NoError(t, err)
		require.WithinDuration(t, result.Profile.CreatedAt, again.Profile.CreatedAt, time.Millisecond)

		var count int
		err = db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s.player_profiles", pq.QuoteIdentifier(schema)))
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("concurrent first reads create one profile", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		p, _ := newPostgres(t, db, "profile_concurrent_read", time.Second)
		player, err := p.CreatePlayer(ctx, domain.PlayerRegistration{Username: "otter"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 5)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = p.GetProfile(ctx, player.ID)
			}()
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
	})

	t.Run("update player and profile", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		p, _ := newPostgres(t, db, "profile_update", time.Second)
		player, err := p.CreatePlayer(ctx, domain.PlayerRegistration{Username: "otter"})
		require.NoError(t, err)

		updated, err := p.UpdateProfile(ctx, player.ID, domain.ProfileUpdate{
			Username:          strPtr("seaotter"),
			DisplayName:       strPtr("Sea Otter"),
			Bio:               strPtr("Holds hands while sleeping"),
			FavoriteOtterFact: strPtr("Otters have a favorite rock"),
			Title:             strPtr("Champion"),
			ProfileBannerURL:  strPtr("https://example.com/banner.png"),
			Location:          strPtr("Monterey Bay"),
		})
		require.NoError(t, err)
		require.Equal(t, "seaotter", updated.Player.Username)
		require.Equal(t, "Sea Otter", *updated.Player.DisplayName)
		require.Equal(t, "Champion", *updated.Profile.Title)

		// Blank fields keep their value
		updated, err = p.UpdateProfile(ctx, player.ID, domain.ProfileUpdate{
			Bio:      strPtr(""),
			Location: strPtr("Kelp forest"),
		})
		require.NoError(t, err)
		require.Equal(t, "Holds hands while sleeping", *updated.Profile.Bio)
		require.Equal(t, "Kelp forest", *updated.Profile.Location)

		stored, err := p.GetProfile(ctx, player.ID)
		require.NoError(t, err)
		require.Equal(t, "seaotter", stored.Player.Username)
		require.Equal(t, "Sea Otter", *stored.Player.DisplayName)
		require.Equal(t, "Holds hands while sleeping", *stored.Profile.Bio)
		require.Equal(t, "Otters have a favorite rock", *stored.Profile.FavoriteOtterFact)
		require.Equal(t, "Champion", *stored.Profile.Title)
		require.Equal(t, "https://example.com/banner.png", *stored.Profile.ProfileBannerURL)
		require.Equal(t, "Kelp forest", *stored.Profile.Location)

		byUsername, err := p.GetPlayerByUsername(ctx, "SEAOTTER")
		require.NoError(t, err)
		require.Equal(t, player.ID, byUsername.ID)
	})

	t.Run("a taken username rolls back the profile change", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		p, _ := newPostgres(t, db, "profile_username_taken", time.Second)
		player, err := p.CreatePlayer(ctx, domain.PlayerRegistration{Username: "otter"})
		require.NoError(t, err)
		_, err = p.CreatePlayer(ctx, domain.PlayerRegistration{Username: "beaver"})
		require.NoError(t, err)

		_, err = p.UpdateProfile(ctx, player.ID, domain.ProfileUpdate{
			Username: strPtr("Beaver"),
			Bio:      strPtr("Not a beaver"),
		})
		require.ErrorIs(t, err, domain.ErrUsernameTaken)

		stored, err := p.GetProfile(ctx, player.ID)
		require.NoError(t, err)
		require.Equal(t, "otter", stored.Player.Username)
		require.Nil(t, stored.Profile.Bio)
	})

	t.Run("invalid update", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		p, _ := newPostgres(t, db, "profile_invalid", time.Second)
		player, err := p.CreatePlayer(ctx, domain.PlayerRegistration{Username: "otter"})
		require.NoError(t, err)

		_, err = p.UpdateProfile(ctx, player.ID, domain.ProfileUpdate{ProfileBannerURL: strPtr("ftp://example.com")})
		require.ErrorIs(t, err, domain.ErrInvalidProfile)
	})

	t.Run("missing player", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		p, _ := newPostgres(t, db, "profile_missing_player", time.Second)

		_, err := p.GetProfile(ctx, uuid.Must(uuid.NewV7()).String())
		require.ErrorIs(t, err, domain.ErrPlayerNotFound)

		_, err = p.GetProfile(ctx, "not-a-uuid")
		require.ErrorIs(t, err, domain.ErrPlayerNotFound)

		_, err = p.UpdateProfile(ctx, uuid.Must(uuid.NewV7()).String(), domain.ProfileUpdate{Bio: strPtr("ghost")})
		require.ErrorIs(t, err, domain.ErrPlayerNotFound)
	})
}
