package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Budget API
	APIBaseURL string
	APITimeout time.Duration

	// Identity
	AccessToken       string
	IdentityID        string
	IdentityEmail     string
	OAuthTokenFile    string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string

	// Preferences and saved templates
	PreferencesBackend string
	SQLiteDBPath       string

	// AMQP mutation events (optional)
	AMQPURL      string
	AMQPExchange string

	// Sheets sync worker
	SyncInterval time.Duration

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Invitation links
	InviteBaseURL string

	// Local emulator
	EmulatorPort           string
	EmulatorRateLimit      int
	EmulatorAllowedOrigins []string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8090"),
		APITimeout: getEnvDuration("API_TIMEOUT", 15*time.Second),

		AccessToken:       getEnv("ACCESS_TOKEN", ""),
		IdentityID:        getEnv("IDENTITY_ID", ""),
		IdentityEmail:     getEnv("IDENTITY_EMAIL", ""),
		OAuthTokenFile:    getEnv("OAUTH_TOKEN_FILE", ""),
		OAuthClientID:     getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthAuthURL:      getEnv("OAUTH_AUTH_URL", ""),
		OAuthTokenURL:     getEnv("OAUTH_TOKEN_URL", ""),

		PreferencesBackend: getEnv("PREFERENCES_BACKEND", "memory"),
		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "./data/simplebudget.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "simplebudget"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Summary"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		InviteBaseURL: getEnv("INVITE_BASE_URL", "http://localhost:5173"),

		EmulatorPort:           getEnv("EMULATOR_PORT", "8090"),
		EmulatorRateLimit:      getEnvInt("EMULATOR_RATE_LIMIT", 0),
		EmulatorAllowedOrigins: getEnvList("EMULATOR_ALLOWED_ORIGINS"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// HasAMQP reports whether mutation events should be published.
func (c *Config) HasAMQP() bool {
	return c.AMQPURL != ""
}

// HasSheets reports whether a spreadsheet export target is configured.
func (c *Config) HasSheets() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if err := validateHTTPURL(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	}

	if c.APITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at least 1 second", c.APITimeout))
	} else if c.APITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at most 5 minutes", c.APITimeout))
	}

	if c.OAuthClientID != "" && c.OAuthTokenURL == "" {
		errors = append(errors, "OAuth token URL is required when OAUTH_CLIENT_ID is set")
	}
	if c.OAuthTokenFile != "" && c.AccessToken != "" {
		errors = append(errors, "set either ACCESS_TOKEN or OAUTH_TOKEN_FILE, not both")
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.PreferencesBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid preferences backend '%s': must be one of %v", c.PreferencesBackend, validBackends))
	}

	if c.PreferencesBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if err := validateHTTPURL(c.InviteBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid invite base URL '%s': %v", c.InviteBaseURL, err))
	}

	if port, err := strconv.Atoi(c.EmulatorPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid emulator port '%s': must be a number", c.EmulatorPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid emulator port %d: must be between 1 and 65535", port))
	}

	if c.EmulatorRateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid emulator rate limit %d: must be 0 (off) or positive", c.EmulatorRateLimit))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be 'http' or 'https'")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
