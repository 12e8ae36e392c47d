package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Backend settings
	BackendURL        string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int

	// Chatbot settings file (provider, model, language)
	SettingsPath string

	// Logging
	LogLevel  string
	LogFormat string

	Verbose bool
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		// Backend defaults
		BackendURL:        "http://localhost:8000",
		Timeout:           120 * time.Second,
		RequestsPerSecond: 5,
		Burst:             2,

		SettingsPath: expandHome("~/.chatbot-client/settings.yaml"),

		// Logs go to stderr; keep them quiet next to the chat by default
		LogLevel:  "warn",
		LogFormat: "console",
	}
}

// LoadEnv reads an optional .env file and applies CHATBOT_* overrides.
// A missing env file is not an error.
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if v := GetEnv("CHATBOT_BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := GetEnv("CHATBOT_TOKEN"); v != "" {
		c.Token = v
	}
	if v := GetEnv("CHATBOT_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CHATBOT_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = d
	}
	if v := GetEnv("CHATBOT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid CHATBOT_RPS %q: %w", v, err)
		}
		c.RequestsPerSecond = rps
	}
	if v := GetEnv("CHATBOT_SETTINGS"); v != "" {
		c.SettingsPath = expandHome(v)
	}
	if v := GetEnv("CHATBOT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := GetEnv("CHATBOT_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.SettingsPath == "" {
		return fmt.Errorf("settings path cannot be empty")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// parseDuration accepts Go durations ("90s") and bare seconds ("90")
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir := getHomeDir()
		return homeDir + path[1:]
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = os.Getenv
