package mediawiki

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

// newTestClient creates a client against a mock server. Sleeps return
// immediately so retry tests run instantly.
func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	config := Config{
		BaseURL: server.URL,
		Retries: 1,
		Timeout: 5 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := NewClient(config, logger)
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

// pageResponse wraps a single page record in the query envelope the API
// uses for prop queries.
func pageResponse(record map[string]any) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"pages": map[string]any{"1": record},
		},
	}
}

// existingPageRecord is a minimal loaded-page record for "Main Page".
func existingPageRecord() map[string]any {
	return map[string]any{
		"pageid":    float64(42),
		"ns":        float64(0),
		"title":     "Main Page",
		"lastrevid": float64(1234),
		"revisions": []any{
			map[string]any{
				"revid":     float64(1234),
				"parentid":  float64(1200),
				"user":      "Alice",
				"timestamp": "2024-05-01T12:00:00Z",
				"comment":   "tidy up",
				"*":         "Hello world",
			},
		},
		"protection": []any{},
	}
}
