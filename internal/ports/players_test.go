package ports_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Amund211/lilypad/internal/app"
	"github.com/Amund211/lilypad/internal/domain"
	"github.com/Amund211/lilypad/internal/ports"
	"github.com/stretchr/testify/require"
)

func TestMakeCreatePlayerHandler(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	makeHandler := func(t *testing.T, createPlayer app.CreatePlayer) http.HandlerFunc {
		return ports.MakeCreatePlayerHandler(createPlayer, testAllowedOrigins(t), testLogger, noopMiddleware)
	}

	makeRequest := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/players", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		handler := makeHandler(t, func(ctx context.Context, registration domain.PlayerRegistration) (domain.Player, error) {
			require.Equal(t, "froggy", registration.Username)
			require.Nil(t, registration.DisplayName)
			return domain.Player{ID: testPlayerID, Username: registration.Username, CreatedAt: createdAt}, nil
		})

		w := httptest.NewRecorder()
		handler(w, makeRequest(`{"player":{"username":"  froggy "}}`))

		require.Equal(t, http.StatusCreated, w.Code)
		require.JSONEq(t, fmt.Sprintf(`{"player":{
			"id":%q,
			"username":"froggy",
			"display_name":"froggy",
			"created_at":"2025-03-01T12:00:00Z"
		}}`, testPlayerID), w.Body.String())
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			name    string
			body    string
			err     error
			status  int
			message string
		}{
			{
				name:    "malformed body",
				body:    `{"player":`,
				status:  http.StatusBadRequest,
				message: "invalid request body",
			},
			{
				name:    "missing root key",
				body:    `{"username":"froggy"}`,
				status:  http.StatusBadRequest,
				message: "missing player",
			},
			{
				name:    "invalid",
				body:    `{"player":{"username":"ab"}}`,
				err:     fmt.Errorf("%w: username must be between 3 and 20 characters", domain.ErrInvalidPlayer),
				status:  http.StatusUnprocessableEntity,
				message: "username must be between 3 and 20 characters",
			},
			{
				name:    "taken",
				body:    `{"player":{"username":"froggy"}}`,
				err:     fmt.Errorf("could not create player: %w", domain.ErrUsernameTaken),
				status:  http.StatusConflict,
				message: "username has already been taken",
			},
			{
				name:    "storage",
				body:    `{"player":{"username":"froggy"}}`,
				err:     errors.New("database down"),
				status:  http.StatusInternalServerError,
				message: "internal server error",
			},
		}

		for _, c := range cases {
			t.Run(c.name, func(t *testing.T) {
				t.Parallel()

				handler := makeHandler(t, func(ctx context.Context, registration domain.PlayerRegistration) (domain.Player, error) {
					return domain.Player{}, c.err
				})

				w := httptest.NewRecorder()
				handler(w, makeRequest(c.body))

				require.Equal(t, c.status, w.Code)
				body := decodeBody[errorsBody](t, w)
				require.Equal(t, []string{c.message}, body.Errors)
			})
		}
	})
}
