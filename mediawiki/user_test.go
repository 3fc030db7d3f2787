package mediawiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func userEnvelope(record map[string]any) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"users": []any{record},
		},
	}
}

func TestUserIsIP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	client := newTestClient(t, server)

	tests := []struct {
		name string
		want bool
	}{
		{"127.0.0.1", true},
		{"2001:db8::1", true},
		{"Alice", false},
		{"192.168.1", false},
	}
	for _, tt := range tests {
		if got := client.User(tt.name).IsIP(); got != tt.want {
			t.Errorf("IsIP(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUserLoad(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("ususers"); got != "Alice" {
			t.Errorf("ususers = %q", got)
		}
		writeJSON(t, w, userEnvelope(map[string]any{
			"userid":       float64(1001),
			"name":         "Alice",
			"editcount":    float64(2500),
			"registration": "2019-03-15T08:30:00Z",
			"groups":       []any{"user", "autoconfirmed", "sysop"},
			"rights":       []any{"edit", "delete", "block"},
			"emailable":    "",
			"gender":       "female",
		}))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	user := client.User("Alice")
	ctx := context.Background()

	exists, err := user.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("Exists = false, want true")
	}
	id, _ := user.ID(ctx)
	if id != 1001 {
		t.Errorf("ID = %d", id)
	}
	count, _ := user.EditCount(ctx)
	if count != 2500 {
		t.Errorf("EditCount = %d", count)
	}
	groups, _ := user.Groups(ctx)
	if len(groups) != 3 || groups[2] != "sysop" {
		t.Errorf("Groups = %v", groups)
	}
	reg, _ := user.Registration(ctx)
	want := time.Date(2019, 3, 15, 8, 30, 0, 0, time.UTC)
	if !reg.Equal(want) {
		t.Errorf("Registration = %v, want %v", reg, want)
	}
	emailable, _ := user.Emailable(ctx)
	if !emailable {
		t.Error("Emailable = false, want true (key present)")
	}
	block, _ := user.Block(ctx)
	if block != nil {
		t.Errorf("Block = %+v, want nil", block)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1", calls)
	}
}

func TestUserMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, userEnvelope(map[string]any{
			"name":    "Nobody",
			"missing": "",
		}))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	user := client.User("Nobody")
	ctx := context.Background()

	exists, err := user.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("Exists = true, want false")
	}
	_, err = user.EditCount(ctx)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want *NotFoundError", err)
	}
	if notFound.Entity != "user" {
		t.Errorf("Entity = %q", notFound.Entity)
	}
}

func TestUserBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, userEnvelope(map[string]any{
			"userid":      float64(666),
			"name":        "Vandal",
			"blockedby":   "Admin",
			"blockreason": "spam",
			"blockexpiry": "infinity",
		}))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	block, err := client.User("Vandal").Block(context.Background())
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if block == nil {
		t.Fatal("Block = nil, want info")
	}
	if block.By != "Admin" || block.Reason != "spam" {
		t.Errorf("Block = %+v", block)
	}
	if !block.Expiry.Equal(neverExpires) {
		t.Errorf("Expiry = %v, want sentinel for infinity", block.Expiry)
	}
}

func TestUserEmailRefusedWhenNotEmailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.FormValue("action") == "emailuser" {
			t.Error("emailuser must not be sent to a non-emailable user")
		}
		writeJSON(t, w, userEnvelope(map[string]any{
			"userid": float64(5),
			"name":   "NoMail",
		}))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	err := client.User("NoMail").Email(context.Background(), "Hi", "Hello", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Kind != KindPermission {
		t.Errorf("Kind = %v, want KindPermission", apiErr.Kind)
	}
}

func TestUserUserPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	client := newTestClient(t, server)

	page, err := client.User("Alice").UserPage()
	if err != nil {
		t.Fatalf("UserPage: %v", err)
	}
	if page.Title() != "User:Alice" {
		t.Errorf("Title = %q", page.Title())
	}
}
