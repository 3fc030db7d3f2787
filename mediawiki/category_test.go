package mediawiki

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func categoryMembersEnvelope() map[string]any {
	return map[string]any{
		"query": map[string]any{
			"pages": map[string]any{
				"1": map[string]any{
					"pageid": float64(1),
					"ns":     float64(0),
					"title":  "Spam",
					"revisions": []any{
						map[string]any{"*": "Spam content", "user": "Alice"},
					},
				},
				"2": map[string]any{
					"pageid": float64(2),
					"ns":     float64(0),
					"title":  "Eggs",
					"revisions": []any{
						map[string]any{"*": "Eggs content", "user": "Bob"},
					},
				},
				"3": map[string]any{
					"pageid": float64(3),
					"ns":     float64(14),
					"title":  "Category:Breakfast",
				},
			},
		},
	}
}

func TestCategoryPrefixNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	client := newTestClient(t, server)

	cat, err := client.Category(PageRef{Title: "Food"})
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	if cat.Title() != "Category:Food" {
		t.Errorf("Title = %q, want Category:Food", cat.Title())
	}

	cat, err = client.Category(PageRef{Title: "Category:Food"})
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	if cat.Title() != "Category:Food" {
		t.Errorf("Title = %q, double prefix must not appear", cat.Title())
	}
}

func TestCategoryPopulate(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("gcmtitle"); got != "Category:Food" {
			t.Errorf("gcmtitle = %q", got)
		}
		writeJSON(t, w, categoryMembersEnvelope())
	}))
	defer server.Close()

	client := newTestClient(t, server)
	cat, _ := client.Category(PageRef{Title: "Food"})
	ctx := context.Background()

	members, err := cat.Members(ctx)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}

	subcats, err := cat.Subcategories(ctx)
	if err != nil {
		t.Fatalf("Subcategories: %v", err)
	}
	if len(subcats) != 1 || subcats[0].Title() != "Category:Breakfast" {
		t.Errorf("subcats = %v", subcats)
	}

	// Members come back pre-loaded from the same response; content access
	// must not trigger another request.
	for _, m := range members {
		if _, err := m.Content(ctx); err != nil {
			t.Errorf("member %s content: %v", m.Title(), err)
		}
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1", calls)
	}
}

func TestCategoryPopulateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		res := categoryMembersEnvelope()
		res["continue"] = map[string]any{"gcmcontinue": "next"}
		writeJSON(t, w, res)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	cat, _ := client.Category(PageRef{Title: "Food"})

	if err := cat.Populate(context.Background(), 2); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (cap stops continuation)", calls)
	}
	total := len(cat.members) + len(cat.subcats)
	if total != 2 {
		t.Errorf("populated %d records, want 2", total)
	}
}
