package mediawiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginNeedTokenRound(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		calls++
		if r.FormValue("action") != "login" {
			t.Errorf("action = %q, want login", r.FormValue("action"))
		}
		switch calls {
		case 1:
			writeJSON(t, w, map[string]any{
				"login": map[string]any{"result": "NeedToken", "token": "abc123"},
			})
		case 2:
			if got := r.FormValue("lgtoken"); got != "abc123" {
				t.Errorf("lgtoken = %q, want abc123", got)
			}
			writeJSON(t, w, map[string]any{
				"login": map[string]any{"result": "Success"},
			})
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ok, err := client.Login(context.Background(), "Bot", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !ok {
		t.Error("Login = false, want true")
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"login": map[string]any{"result": "WrongPass"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ok, err := client.Login(context.Background(), "Bot", "wrong")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if ok {
		t.Error("Login = true, want false")
	}
}

func TestRefreshTokensModern(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.FormValue("action") != "tokens" {
			t.Errorf("action = %q, want tokens", r.FormValue("action"))
		}
		writeJSON(t, w, map[string]any{
			"tokens": map[string]any{
				"edittoken":   "e+\\",
				"deletetoken": "d+\\",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if err := client.RefreshTokens(context.Background(), "edit", "delete"); err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if got, ok := client.Token("edit"); !ok || got != "e+\\" {
		t.Errorf("edit token = %q, %v", got, ok)
	}
	if got, ok := client.Token("delete"); !ok || got != "d+\\" {
		t.Errorf("delete token = %q, %v", got, ok)
	}
}

func TestRefreshTokensLegacyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.FormValue("action") == "tokens" {
			writeJSON(t, w, map[string]any{
				"error": map[string]any{"code": "unknown_action", "info": "no such action"},
			})
			return
		}
		if got := r.FormValue("intoken"); got != "edit" {
			t.Errorf("intoken = %q, want edit", got)
		}
		writeJSON(t, w, map[string]any{
			"query": map[string]any{
				"pages": map[string]any{
					"-1": map[string]any{
						"title":     "Some random title",
						"missing":   "",
						"edittoken": "legacy+\\",
					},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if err := client.RefreshTokens(context.Background()); err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if got, ok := client.Token("edit"); !ok || got != "legacy+\\" {
		t.Errorf("edit token = %q, %v", got, ok)
	}
}

func TestActionTokenMissingMeansNoPermission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"tokens": map[string]any{}})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.actionToken(context.Background(), "delete")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Kind != KindPermission {
		t.Errorf("Kind = %v, want KindPermission", apiErr.Kind)
	}
}

func TestNamespacesCached(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(t, w, map[string]any{
			"query": map[string]any{
				"namespaces": map[string]any{
					"0":    map[string]any{"id": float64(0), "*": ""},
					"1":    map[string]any{"id": float64(1), "*": "Talk"},
					"1337": map[string]any{"id": float64(1337), "*": "Spam"},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ctx := context.Background()

	namespaces, err := client.Namespaces(ctx)
	if err != nil {
		t.Fatalf("Namespaces: %v", err)
	}
	if len(namespaces) != 3 {
		t.Errorf("got %d namespaces, want 3", len(namespaces))
	}
	if namespaces[1337] != "Spam" {
		t.Errorf("namespaces[1337] = %q, want Spam", namespaces[1337])
	}

	if _, err := client.Namespaces(ctx); err != nil {
		t.Fatalf("second Namespaces: %v", err)
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (cached)", calls)
	}
}

func TestExpandTemplates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if got := r.FormValue("text"); got != "{{ping}}" {
			t.Errorf("text = %q, want {{ping}}", got)
		}
		writeJSON(t, w, map[string]any{
			"expandtemplates": map[string]any{"*": "pong"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	out, err := client.ExpandTemplates(context.Background(), "Sandbox", "{{ping}}", false)
	if err != nil {
		t.Fatalf("ExpandTemplates: %v", err)
	}
	if out != "pong" {
		t.Errorf("expanded = %q, want pong", out)
	}
}
