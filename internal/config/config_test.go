package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.RateLimitWindow != 15*time.Minute || cfg.RateLimitMax != 3 || cfg.RateLimitMinInterval != 5*time.Second {
		t.Fatalf("unexpected rate-limit defaults: %+v", cfg)
	}
	if cfg.NotifierConfigured() {
		t.Fatal("notifier must not be configured without credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_MIN_INTERVAL", "1s")
	t.Setenv("EMAILJS_SERVICE_ID", "svc")
	t.Setenv("EMAILJS_TEMPLATE_ID", "tpl")
	t.Setenv("EMAILJS_PUBLIC_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.RateLimitWindow != time.Minute || cfg.RateLimitMax != 5 || cfg.RateLimitMinInterval != time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.NotifierConfigured() {
		t.Fatal("notifier should be configured with all three credentials")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_WINDOW", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable window")
	}
}

func TestLoadRejectsNonPositiveMax(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero RATE_LIMIT_MAX")
	}
}
