package playerrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/lilypad/internal/adapters/database"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/reporting"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const profileColumns = `player_id, bio, favorite_otter_fact, title, profile_banner_url, location, created_at, updated_at`

type dbProfile struct {
	PlayerID          string    `db:"player_id"`
	Bio               *string   `db:"bio"`
	FavoriteOtterFact *string   `db:"favorite_otter_fact"`
	Title             *string   `db:"title"`
	ProfileBannerURL  *string   `db:"profile_banner_url"`
	Location          *string   `db:"location"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (p dbProfile) toDomain() domain.PlayerProfile {
	return domain.PlayerProfile{
		PlayerID:          p.PlayerID,
		Bio:               p.Bio,
		FavoriteOtterFact: p.FavoriteOtterFact,
		Title:             p.Title,
		ProfileBannerURL:  p.ProfileBannerURL,
		Location:          p.Location,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// GetProfile returns the player with their profile, creating an empty profile if they have none
func (p *Postgres) GetProfile(ctx context.Context, playerID string) (domain.PlayerWithProfile, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetProfile")
	defer span.End()

	var result domain.PlayerWithProfile
	err := p.inProfileTx(ctx, playerID, false, func(txx *sqlx.Tx, current domain.PlayerWithProfile) error {
		result = current
		return nil
	})
	if err != nil {
		return domain.PlayerWithProfile{}, err
	}
	return result, nil
}

// UpdateProfile applies the update to the player and their profile in one transaction
func (p *Postgres) UpdateProfile(ctx context.Context, playerID string, update domain.ProfileUpdate) (domain.PlayerWithProfile, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.UpdateProfile")
	defer span.End()

	if err := update.Validate(); err != nil {
		return domain.PlayerWithProfile{}, err
	}

	var result domain.PlayerWithProfile
	err := p.inProfileTx(ctx, playerID, true, func(txx *sqlx.Tx, current domain.PlayerWithProfile) error {
		next := update.ApplyTo(current)
		now := p.nowFunc()

		_, err := txx.ExecContext(
			ctx,
			fmt.Sprintf("UPDATE %s.players SET username = $2, display_name = $3, updated_at = $4 WHERE id = $1", pq.QuoteIdentifier(p.schema)),
			playerID,
			next.Player.Username,
			next.Player.DisplayName,
			now,
		)
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrUsernameTaken, next.Player.Username)
		}
		if err != nil {
			err := fmt.Errorf("failed to update player: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"playerID": playerID,
			})
			return err
		}

		var stored dbProfile
		err = txx.GetContext(
			ctx,
			&stored,
			fmt.Sprintf(`UPDATE %s.player_profiles SET
				bio = $2,
				favorite_otter_fact = $3,
				title = $4,
				profile_banner_url = $5,
				location = $6,
				updated_at = $7
			WHERE player_id = $1
			RETURNING %s`,
				pq.QuoteIdentifier(p.schema), profileColumns),
			playerID,
			next.Profile.Bio,
			next.Profile.FavoriteOtterFact,
			next.Profile.Title,
			next.Profile.ProfileBannerURL,
			next.Profile.Location,
			now,
		)
		if err != nil {
			err := fmt.Errorf("failed to update player profile: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"playerID": playerID,
			})
			return err
		}

		result = domain.PlayerWithProfile{Player: next.Player, Profile: stored.toDomain()}
		return nil
	})
	if err != nil {
		return domain.PlayerWithProfile{}, err
	}
	return result, nil
}

// inProfileTx loads the player and their profile, creating the profile if missing, and
// runs fn in the same transaction. The player row is locked when forUpdate is set.
func (p *Postgres) inProfileTx(
	ctx context.Context,
	playerID string,
	forUpdate bool,
	fn func(txx *sqlx.Tx, current domain.PlayerWithProfile) error,
) error {
	if err := uuid.Validate(playerID); err != nil {
		return fmt.Errorf("%w: invalid id %q", domain.ErrPlayerNotFound, playerID)
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return err
	}
	defer txx.Rollback()

	lock := ""
	if forUpdate {
		lock = " FOR UPDATE"
	}

	var player dbPlayer
	err = txx.GetContext(
		ctx,
		&player,
		fmt.Sprintf("SELECT %s FROM %s.players WHERE id = $1%s", playerColumns, pq.QuoteIdentifier(p.schema), lock),
		playerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrPlayerNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to get player: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return err
	}

	now := p.nowFunc()
	_, err = txx.ExecContext(
		ctx,
		fmt.Sprintf(
			"INSERT INTO %s.player_profiles (player_id, created_at, updated_at) VALUES ($1, $2, $2) ON CONFLICT (player_id) DO NOTHING",
			pq.QuoteIdentifier(p.schema),
		),
		playerID,
		now,
	)
	if err != nil {
		err := fmt.Errorf("failed to create player profile: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return err
	}

	var profile dbProfile
	err = txx.GetContext(
		ctx,
		&profile,
		fmt.Sprintf("SELECT %s FROM %s.player_profiles WHERE player_id = $1", profileColumns, pq.QuoteIdentifier(p.schema)),
		playerID,
	)
	if err != nil {
		err := fmt.Errorf("failed to get player profile: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"playerID": playerID,
		})
		return err
	}

	current := domain.PlayerWithProfile{Player: player.toDomain(), Profile: profile.toDomain()}
	if err := fn(txx, current); err != nil {
		return err
	}

	if err := txx.Commit(); err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err)
		return err
	}
	return nil
}
