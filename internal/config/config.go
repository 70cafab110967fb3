package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"ledgerbridge/internal/core"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Database
	SQLiteDBPath string

	// Backend selection
	DataBackend string

	// Ledger API
	LedgerBaseURL string
	HTTPTimeout   time.Duration

	// Optional credential seeds. Values stored with the admin CLI win.
	LedgerAccessToken string
	ServiceKey        string
	DefaultBudgetID   string

	// Automation platform realtime endpoint
	NotifyURL string

	// AMQP. An empty URL runs sync cycles inline.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncInterval    time.Duration
	SyncConcurrency int
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledgerbridge.db"),
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),

		LedgerBaseURL: getEnv("LEDGER_BASE_URL", "https://api.youneedabudget.com/v1"),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		LedgerAccessToken: getEnv("LEDGER_ACCESS_TOKEN", ""),
		ServiceKey:        getEnv("SERVICE_KEY", ""),
		DefaultBudgetID:   getEnv("DEFAULT_BUDGET_ID", ""),

		NotifyURL: getEnv("NOTIFY_URL", "https://realtime.ifttt.com/v1/notifications"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledgerbridge"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_sync"),

		SyncInterval:    getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		SyncConcurrency: getEnvInt("SYNC_CONCURRENCY", 4),
	}

	return cfg
}

// Seed returns the credential seeds as a secrets snapshot.
func (c *Config) Seed() core.Secrets {
	return core.Secrets{
		ServiceKey:    c.ServiceKey,
		AccessToken:   c.LedgerAccessToken,
		DefaultBudget: c.DefaultBudgetID,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
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

	for name, raw := range map[string]string{"ledger base URL": c.LedgerBaseURL, "notify URL": c.NotifyURL} {
		if msg := validateHTTPURL(name, raw); msg != "" {
			errors = append(errors, msg)
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.LedgerAccessToken != "" && len(c.LedgerAccessToken) != core.KeyLength {
		errors = append(errors, fmt.Sprintf("invalid ledger access token: must be %d characters", core.KeyLength))
	}
	if c.ServiceKey != "" && len(c.ServiceKey) != core.KeyLength {
		errors = append(errors, fmt.Sprintf("invalid service key: must be %d characters", core.KeyLength))
	}
	if c.DefaultBudgetID != "" {
		if err := core.ValidateBudgetID(c.DefaultBudgetID); err != nil {
			errors = append(errors, fmt.Sprintf("invalid default budget id '%s': must be a UUID", c.DefaultBudgetID))
		}
	}

	if c.SyncConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be at least 1", c.SyncConcurrency))
	} else if c.SyncConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be at most 32", c.SyncConcurrency))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.HTTPTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be positive", c.HTTPTimeout))
	}
	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(name, raw string) string {
	if raw == "" {
		return fmt.Sprintf("%s cannot be empty", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid %s '%s': %v", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("invalid %s scheme '%s': must be 'http' or 'https'", name, u.Scheme)
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
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
