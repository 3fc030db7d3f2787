// Config loading for the ceterach CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/Riamse/ceterach/mediawiki"
)

const (
	configFileName = ".ceterach"
	configFileType = "yaml"

	cfgKeyURL        = "url"
	cfgKeyUsername   = "username"
	cfgKeyPassword   = "password"
	cfgKeyThrottle   = "throttle"
	cfgKeyRetries    = "retries"
	cfgKeyRetrySleep = "retry_sleep"
	cfgKeyTimeout    = "timeout"
	cfgKeyUserAgent  = "user_agent"
)

// loadConfig builds the client configuration with this precedence:
// --url flag > config file > MEDIAWIKI_* environment variables > defaults.
// A missing config file is not an error.
func loadConfig(configFile, urlFlag string) (mediawiki.Config, error) {
	defaults := mediawiki.DefaultConfig()

	v := viper.New()
	v.SetDefault(cfgKeyRetries, defaults.Retries)
	v.SetDefault(cfgKeyThrottle, defaults.Throttle)
	v.SetDefault(cfgKeyRetrySleep, defaults.RetrySleep)
	v.SetDefault(cfgKeyTimeout, defaults.Timeout)
	v.SetDefault(cfgKeyUserAgent, defaults.UserAgent)

	v.SetEnvPrefix("MEDIAWIKI")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing config file is fine; flags and env can carry it.
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return mediawiki.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	config := defaults
	config.BaseURL = v.GetString(cfgKeyURL)
	if urlFlag != "" {
		config.BaseURL = urlFlag
	}
	if config.BaseURL == "" {
		return mediawiki.Config{}, fmt.Errorf("no wiki URL configured (use --url, MEDIAWIKI_URL, or a config file)")
	}
	config.Username = v.GetString(cfgKeyUsername)
	config.Password = v.GetString(cfgKeyPassword)
	config.Throttle = v.GetDuration(cfgKeyThrottle)
	config.Retries = v.GetInt(cfgKeyRetries)
	config.RetrySleep = v.GetDuration(cfgKeyRetrySleep)
	if t := v.GetDuration(cfgKeyTimeout); t > 0 {
		config.Timeout = t
	}
	if ua := v.GetString(cfgKeyUserAgent); ua != "" {
		config.UserAgent = ua
	}
	if config.RetrySleep <= 0 {
		config.RetrySleep = 5 * time.Second
	}
	return config, nil
}
