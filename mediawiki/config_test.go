package mediawiki

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Throttle != 0 {
		t.Errorf("Throttle = %v, want 0", config.Throttle)
	}
	if config.Retries != 1 {
		t.Errorf("Retries = %d, want 1", config.Retries)
	}
	if config.RetrySleep != 5*time.Second {
		t.Errorf("RetrySleep = %v, want 5s", config.RetrySleep)
	}
	if !config.allowsGET("query") || !config.allowsGET("purge") {
		t.Error("query and purge must be GET actions")
	}
	if config.allowsGET("edit") || config.allowsGET("login") {
		t.Error("edit and login must not be GET actions")
	}
	if config.Defaults["maxlag"] != 5 {
		t.Errorf("maxlag default = %v, want 5", config.Defaults["maxlag"])
	}
	if config.Defaults["assert"] != "user" {
		t.Errorf("assert default = %v, want user", config.Defaults["assert"])
	}
}

func TestLoadConfigRequiresURL(t *testing.T) {
	t.Setenv("MEDIAWIKI_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig without MEDIAWIKI_URL should fail")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MEDIAWIKI_URL", "https://wiki.example.com/api.php")
	t.Setenv("MEDIAWIKI_USERNAME", "Bot")
	t.Setenv("MEDIAWIKI_PASSWORD", "hunter2")
	t.Setenv("MEDIAWIKI_THROTTLE", "2s")
	t.Setenv("MEDIAWIKI_RETRIES", "-1")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.BaseURL != "https://wiki.example.com/api.php" {
		t.Errorf("BaseURL = %q", config.BaseURL)
	}
	if !config.HasCredentials() {
		t.Error("HasCredentials = false, want true")
	}
	if config.Throttle != 2*time.Second {
		t.Errorf("Throttle = %v, want 2s", config.Throttle)
	}
	if config.Retries != -1 {
		t.Errorf("Retries = %d, want -1 (unbounded)", config.Retries)
	}
}
