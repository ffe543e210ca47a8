package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "TAX_RATE", "CARD_FEE_RATE", "DEFAULT_SERVICE_TIME_GAP", "EVENTS_QUEUE_URL"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.DefaultServiceTimeGap != 30*time.Minute {
		t.Fatalf("expected default gap 30m, got %s", cfg.DefaultServiceTimeGap)
	}
	if got := cfg.TaxRateDecimal().String(); got != "0.045" {
		t.Fatalf("expected default tax rate, got %s", got)
	}
	if got := cfg.CardFeeRateDecimal().String(); got != "0.0275" {
		t.Fatalf("expected default card fee rate, got %s", got)
	}
	if cfg.EventsQueueURL != "" {
		t.Fatalf("expected events queue disabled by default, got %s", cfg.EventsQueueURL)
	}
	if cfg.OutboxBatchSize != 25 {
		t.Fatalf("expected outbox batch 25, got %d", cfg.OutboxBatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("TAX_RATE", "0.08")
	t.Setenv("CARD_FEE_RATE", "0.03")
	t.Setenv("DEFAULT_SERVICE_TIME_GAP", "45m")
	t.Setenv("OUTBOX_POLL_INTERVAL", "5s")
	t.Setenv("REDIS_TLS", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if got := cfg.TaxRateDecimal().String(); got != "0.08" {
		t.Fatalf("expected tax override, got %s", got)
	}
	if got := cfg.CardFeeRateDecimal().String(); got != "0.03" {
		t.Fatalf("expected fee override, got %s", got)
	}
	if cfg.DefaultServiceTimeGap != 45*time.Minute {
		t.Fatalf("expected gap override, got %s", cfg.DefaultServiceTimeGap)
	}
	if cfg.OutboxPollInterval != 5*time.Second {
		t.Fatalf("expected poll interval override, got %s", cfg.OutboxPollInterval)
	}
	if !cfg.RedisTLS {
		t.Fatal("expected redis tls enabled")
	}
}

func TestMalformedRatesFallBack(t *testing.T) {
	cfg := &Config{TaxRate: "abc", CardFeeRate: "-0.01"}
	if got := cfg.TaxRateDecimal().String(); got != "0.045" {
		t.Fatalf("expected fallback tax rate, got %s", got)
	}
	if got := cfg.CardFeeRateDecimal().String(); got != "0.0275" {
		t.Fatalf("expected fallback fee rate, got %s", got)
	}
}

func TestCORSOriginsAndRateLimit(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://book.example.com, ,https://admin.example.com ")
	t.Setenv("WRITE_RATE_LIMIT", "")
	cfg := Load()
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.WriteRateLimit != 30 {
		t.Fatalf("expected default write rate limit, got %d", cfg.WriteRateLimit)
	}
}
