package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultTaxRate     = "0.045"
	defaultCardFeeRate = "0.0275"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Checkout
	TaxRate     string
	CardFeeRate string

	// DefaultServiceTimeGap applies to stylists whose profile has no gap set.
	DefaultServiceTimeGap time.Duration

	// Outbox delivery
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	EventsRedisChannel string
	EventsQueueURL     string

	// AWS (SQS event publisher)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// HTTP
	CORSAllowedOrigins []string
	// WriteRateLimit is the per-client budget of write requests per minute;
	// zero disables limiting.
	WriteRateLimit int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		TaxRate:     strings.TrimSpace(getEnv("TAX_RATE", defaultTaxRate)),
		CardFeeRate: strings.TrimSpace(getEnv("CARD_FEE_RATE", defaultCardFeeRate)),

		DefaultServiceTimeGap: getEnvAsDuration("DEFAULT_SERVICE_TIME_GAP", 30*time.Minute),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 25),
		EventsRedisChannel: getEnv("EVENTS_REDIS_CHANNEL", "salon:appointments"),
		EventsQueueURL:     getEnv("EVENTS_QUEUE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		WriteRateLimit:     getEnvAsInt("WRITE_RATE_LIMIT", 30),
	}
}

// TaxRateDecimal parses TaxRate, falling back to the default rate when the
// value is malformed or negative.
func (c *Config) TaxRateDecimal() decimal.Decimal {
	return parseRate(c.TaxRate, defaultTaxRate)
}

// CardFeeRateDecimal parses CardFeeRate with the same fallback rules as
// TaxRateDecimal.
func (c *Config) CardFeeRateDecimal() decimal.Decimal {
	return parseRate(c.CardFeeRate, defaultCardFeeRate)
}

func parseRate(value, fallback string) decimal.Decimal {
	rate, err := decimal.NewFromString(value)
	if err != nil || rate.IsNegative() {
		return decimal.RequireFromString(fallback)
	}
	return rate
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
