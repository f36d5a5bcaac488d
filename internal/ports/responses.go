package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Amund211/lilypad/internal/reporting"
)

type errorsResponse struct {
	Errors []string `json:"errors"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, response any) {
	data, err := json.Marshal(response)
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal response: %w", err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errors":["internal server error"]}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}

func writeErrors(ctx context.Context, w http.ResponseWriter, statusCode int, errors ...string) {
	writeJSON(ctx, w, statusCode, errorsResponse{Errors: errors})
}

// Timestamps are always rendered in UTC
func utcTime(t time.Time) time.Time {
	return t.UTC()
}

func utcTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
