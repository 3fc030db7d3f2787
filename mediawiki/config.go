package mediawiki

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds connection settings for one wiki. It is treated as an
// immutable value: construct it once (usually starting from DefaultConfig)
// and pass it to NewClient.
type Config struct {
	// BaseURL is the full URL of the wiki's API endpoint
	// (e.g. https://en.wikipedia.org/w/api.php).
	BaseURL string

	// Username and Password for bot authentication (optional).
	Username string
	Password string

	// Throttle is the minimum delay between consecutive API requests.
	// The gateway blocks for the remaining delta before sending.
	Throttle time.Duration

	// Retries is how many times to resend after a maxlag error. Negative
	// means keep retrying until the wiki stops reporting lag.
	Retries int

	// RetrySleep is the delay between maxlag retries.
	RetrySleep time.Duration

	// GETActions lists the API actions sent as GET requests; every other
	// action is POSTed. Which actions tolerate GET varies between wikis.
	GETActions []string

	// Defaults are extra parameters merged into every defaulted call,
	// overridable per call. The stock defaults ask the wiki to refuse
	// requests when replica lag exceeds 5 seconds and to assert a
	// logged-in user.
	Defaults Params

	// Timeout for individual HTTP requests.
	Timeout time.Duration

	// UserAgent identifies the client to the wiki.
	UserAgent string
}

// DefaultConfig returns the stock configuration: no throttle, one maxlag
// retry with a 5 second sleep, GET for query and purge, and maxlag/assert
// default parameters.
func DefaultConfig() Config {
	return Config{
		Throttle:   0,
		Retries:    1,
		RetrySleep: 5 * time.Second,
		GETActions: []string{"query", "purge"},
		Defaults:   Params{"maxlag": 5, "assert": "user"},
		Timeout:    30 * time.Second,
		UserAgent:  defaultUserAgent,
	}
}

const defaultUserAgent = "Ceterach/1.0 (https://github.com/Riamse/ceterach)"

// LoadConfig loads configuration from environment variables, filling
// everything not set from DefaultConfig. MEDIAWIKI_URL is required.
func LoadConfig() (Config, error) {
	baseURL := os.Getenv("MEDIAWIKI_URL")
	if baseURL == "" {
		return Config{}, errors.New("MEDIAWIKI_URL environment variable is required")
	}

	config := DefaultConfig()
	config.BaseURL = baseURL
	config.Username = os.Getenv("MEDIAWIKI_USERNAME")
	config.Password = os.Getenv("MEDIAWIKI_PASSWORD")

	if t := os.Getenv("MEDIAWIKI_THROTTLE"); t != "" {
		if d, err := time.ParseDuration(t); err == nil && d >= 0 {
			config.Throttle = d
		}
	}
	if r := os.Getenv("MEDIAWIKI_RETRIES"); r != "" {
		if n, err := strconv.Atoi(r); err == nil {
			config.Retries = n
		}
	}
	if s := os.Getenv("MEDIAWIKI_RETRY_SLEEP"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= 0 {
			config.RetrySleep = d
		}
	}
	if t := os.Getenv("MEDIAWIKI_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil && d > 0 {
			config.Timeout = d
		}
	}
	if ua := os.Getenv("MEDIAWIKI_USER_AGENT"); ua != "" {
		config.UserAgent = ua
	}

	return config, nil
}

// HasCredentials returns true if authentication credentials are configured.
func (c Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// allowsGET reports whether the action is on the GET allow-list.
func (c Config) allowsGET(action string) bool {
	for _, a := range c.GETActions {
		if a == action {
			return true
		}
	}
	return false
}
