package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything cmd/server needs to wire the service.
type Config struct {
	Addr string

	// Token secrets. Enrollment and continuation tokens live in separate
	// trust domains, so they sign under separate secrets.
	EnrollmentTokenSecret   string
	ContinuationTokenSecret string
	ContinuationTokenTTL    time.Duration

	// DelegateTokens authenticate call-center consoles. Comma separated.
	DelegateTokens []string

	// EnrollmentCaps is the static per-account capacity table, encoded as
	// "accountID=cap" pairs. Accounts absent from the table are uncapped.
	EnrollmentCaps map[string]int

	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// RedisConfig configures the optional OTP resend throttle.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:                    envOr("MEMBERGATE_ADDR", ":8080"),
		EnrollmentTokenSecret:   envOr("ENROLLMENT_TOKEN_SECRET", "dev-enrollment-secret-change-in-production"),
		ContinuationTokenSecret: envOr("CONTINUATION_TOKEN_SECRET", "dev-continuation-secret-change-in-production"),
		ContinuationTokenTTL:    envDuration("CONTINUATION_TOKEN_TTL", 15*time.Minute),
		PostgresURL:             os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "membergate.audit"),
		},
		DelegateTokens: splitNonEmpty(os.Getenv("DELEGATE_API_TOKENS")),
		EnrollmentCaps: parseCaps(os.Getenv("ENROLLMENT_CAPS")),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseCaps parses "acme=650,globex=1200" into the capacity table.
// Malformed pairs are skipped rather than failing startup.
func parseCaps(s string) map[string]int {
	caps := make(map[string]int)
	for _, pair := range splitNonEmpty(s) {
		key, val, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || n < 0 {
			continue
		}
		caps[strings.TrimSpace(key)] = n
	}
	return caps
}
