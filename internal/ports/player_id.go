package ports

import (
	"net/http"

	"github.com/Amund211/lilypad/internal/logging"
	"github.com/google/uuid"
)

// playerIDFromRequest reads the player authenticated by the gateway.
// present is false for anonymous requests, valid is false when the header is malformed.
func playerIDFromRequest(r *http.Request) (playerID string, present bool, valid bool) {
	raw := r.Header.Get(logging.PlayerIDHeader)
	if raw == "" {
		return "", false, true
	}

	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", true, false
	}
	return parsed.String(), true, true
}
