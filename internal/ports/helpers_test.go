package ports_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Amund211/lilypad/internal/ports"
	"github.com/stretchr/testify/require"
)

const testPlayerID = "01234567-89ab-cdef-0123-456789abcdef"

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func noopMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r)
	}
}

func testAllowedOrigins(t *testing.T) *ports.DomainSuffixes {
	t.Helper()
	allowedOrigins, err := ports.NewDomainSuffixes("example.com", "test.com")
	require.NoError(t, err)
	return allowedOrigins
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type errorsBody struct {
	Errors []string `json:"errors"`
}
