package mediawiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func allpagesEnvelope(titles []string, cont map[string]any) map[string]any {
	pages := make([]any, 0, len(titles))
	for i, title := range titles {
		pages = append(pages, map[string]any{
			"pageid": float64(i + 1),
			"ns":     float64(0),
			"title":  title,
		})
	}
	res := map[string]any{
		"query": map[string]any{"allpages": pages},
	}
	if cont != nil {
		res["continue"] = cont
	}
	return res
}

func TestQueryIteratesAcrossPages(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			writeJSON(t, w, allpagesEnvelope([]string{"A", "B"}, map[string]any{"apcontinue": "C"}))
		case 2:
			if got := r.URL.Query().Get("apcontinue"); got != "C" {
				t.Errorf("second request apcontinue = %q, want C", got)
			}
			writeJSON(t, w, allpagesEnvelope([]string{"C", "D"}, nil))
		default:
			t.Error("unexpected extra request")
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	q := client.NewQuery(Params{"list": "allpages"})

	var titles []string
	for q.Next(context.Background()) {
		titles = append(titles, getString(q.Item(), "title"))
	}
	if err := q.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if got := strings.Join(titles, ","); got != "A,B,C,D" {
		t.Errorf("titles = %s, want A,B,C,D", got)
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
}

func TestQueryLegacyContinuation(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			res := allpagesEnvelope([]string{"A"}, nil)
			res["query-continue"] = map[string]any{
				"allpages": map[string]any{"apcontinue": "B"},
			}
			writeJSON(t, w, res)
			return
		}
		if got := r.URL.Query().Get("apcontinue"); got != "B" {
			t.Errorf("second request apcontinue = %q, want B", got)
		}
		writeJSON(t, w, allpagesEnvelope([]string{"B"}, nil))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	q := client.NewQuery(Params{"list": "allpages"})

	count := 0
	for q.Next(context.Background()) {
		count++
	}
	if err := q.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if count != 2 {
		t.Errorf("yielded %d records, want 2", count)
	}
}

func TestQueryLimitStopsMidPage(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(t, w, allpagesEnvelope([]string{"A", "B", "C", "D", "E"},
			map[string]any{"apcontinue": "F"}))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	q := client.NewQuery(Params{"list": "allpages"}, WithLimit(3))

	count := 0
	for q.Next(context.Background()) {
		count++
	}
	if err := q.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if count != 3 {
		t.Errorf("yielded %d records, want 3", count)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (cap reached mid-page)", calls)
	}
}

func TestQueryMapOfRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"query": map[string]any{
				"pages": map[string]any{
					"10": map[string]any{"pageid": float64(10), "title": "X"},
					"20": map[string]any{"pageid": float64(20), "title": "Y"},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	q := client.NewQuery(Params{"titles": "X|Y", "prop": "info"})

	seen := map[string]bool{}
	for q.Next(context.Background()) {
		seen[getString(q.Item(), "title")] = true
	}
	if err := q.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if !seen["X"] || !seen["Y"] {
		t.Errorf("seen = %v, want both X and Y", seen)
	}
}

func TestQueryEmptyEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	q := client.NewQuery(Params{"list": "allpages"})
	if q.Next(context.Background()) {
		t.Error("Next returned true for an empty envelope")
	}
	if err := q.Err(); err != nil {
		t.Errorf("Err = %v, want nil (silent termination)", err)
	}
}

func TestQueryMultipleNodesIsUsageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"query": map[string]any{
				"allpages":      []any{},
				"allcategories": []any{},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	q := client.NewQuery(Params{"list": "allpages|allcategories"})
	if q.Next(context.Background()) {
		t.Error("Next returned true despite multiple result nodes")
	}
	var usageErr *UsageError
	if !errors.As(q.Err(), &usageErr) {
		t.Fatalf("Err = %v, want *UsageError", q.Err())
	}
	if !strings.Contains(usageErr.Message, "allcategories, allpages") {
		t.Errorf("message %q should list the nodes in sorted order", usageErr.Message)
	}
}

func TestQueryMetadataNodesIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"query": map[string]any{
				"normalized": []any{map[string]any{"from": "x", "to": "X"}},
				"redirects":  []any{},
				"allpages":   []any{map[string]any{"title": "X"}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	q := client.NewQuery(Params{"list": "allpages"})
	if !q.Next(context.Background()) {
		t.Fatalf("Next returned false: %v", q.Err())
	}
	if got := getString(q.Item(), "title"); got != "X" {
		t.Errorf("title = %q, want X", got)
	}
}
