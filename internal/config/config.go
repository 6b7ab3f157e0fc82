package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/signal-community/apply-service/internal/ratelimit"
)

// Config contains runtime configuration required by the service.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// EmailJS credentials. All three must be set for delivery; otherwise
	// the service runs in log-only fallback mode.
	EmailJSServiceID  string
	EmailJSTemplateID string
	EmailJSPublicKey  string
	ToEmail           string

	// ArchiveDBURL is optional; empty disables the durable archive.
	ArchiveDBURL string

	RateLimitWindow      time.Duration
	RateLimitMax         int
	RateLimitMinInterval time.Duration
	NotifyTimeout        time.Duration
}

// NotifierConfigured reports whether email delivery can be attempted.
func (c Config) NotifierConfigured() bool {
	return c.EmailJSServiceID != "" && c.EmailJSTemplateID != "" && c.EmailJSPublicKey != ""
}

// Load reads values from environment variables, after autoloading a local
// .env if present. Missing notifier credentials and a missing archive DB are
// valid degraded configurations, not errors.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:        envOr("PORT", "8080"),
		Environment: envOr("APP_ENV", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),

		EmailJSServiceID:  strings.TrimSpace(os.Getenv("EMAILJS_SERVICE_ID")),
		EmailJSTemplateID: strings.TrimSpace(os.Getenv("EMAILJS_TEMPLATE_ID")),
		EmailJSPublicKey:  strings.TrimSpace(os.Getenv("EMAILJS_PUBLIC_KEY")),
		ToEmail:           envOr("APPLY_TO_EMAIL", "team@signal.community"),

		ArchiveDBURL: strings.TrimSpace(os.Getenv("ARCHIVE_DB_URL")),

		RateLimitWindow:      ratelimit.DefaultWindow,
		RateLimitMax:         ratelimit.DefaultMaxRequests,
		RateLimitMinInterval: ratelimit.DefaultMinInterval,
		NotifyTimeout:        10 * time.Second,
	}

	var err error
	if cfg.RateLimitWindow, err = durationOr("RATE_LIMIT_WINDOW", cfg.RateLimitWindow); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitMinInterval, err = durationOr("RATE_LIMIT_MIN_INTERVAL", cfg.RateLimitMinInterval); err != nil {
		return Config{}, err
	}
	if cfg.NotifyTimeout, err = durationOr("NOTIFY_TIMEOUT", cfg.NotifyTimeout); err != nil {
		return Config{}, err
	}

	if raw := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX")); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n <= 0 {
			return Config{}, errors.New("RATE_LIMIT_MAX must be a positive integer")
		}
		cfg.RateLimitMax = n
	}

	return cfg, nil
}

// envOr returns the trimmed env value or a default when unset/blank.
func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// durationOr parses a Go duration string ("15m", "5s") or keeps the default.
func durationOr(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errors.New(key + " must be a positive duration like 15m or 5s")
	}
	return d, nil
}
