// Package config builds process configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Slack    SlackConfig
	Zendesk  ZendeskConfig
	Sweeper  SweeperConfig
	Auth     AuthConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr string
}

// PostgresConfig selects the durable ledger/audit backend when set.
type PostgresConfig struct {
	URL string
}

// RedisConfig selects the Redis ledger backend when set (and Postgres is
// not).
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables audit event streaming when brokers are set.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// SlackConfig configures the evidence-request channel.
type SlackConfig struct {
	WebhookURL string
}

// ZendeskConfig configures the case-management channel.
type ZendeskConfig struct {
	Subdomain string
	Email     string
	APIToken  string
}

// SweeperConfig controls recovery of abandoned PENDING ledger keys.
type SweeperConfig struct {
	PendingTimeout time.Duration
	Interval       time.Duration
}

// AuthConfig configures bearer auth on the review API. An empty signing key
// disables auth (development only).
type AuthConfig struct {
	JWTSigningKey string
}

// FromEnv builds a Config from CDDFLOW_* environment variables. Channel
// credentials keep the names the surrounding tooling already exports.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr: envOr("CDDFLOW_ADDR", ":8080"),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("CDDFLOW_POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CDDFLOW_REDIS_URL"),
			PoolSize:     envIntOr("CDDFLOW_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("CDDFLOW_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("CDDFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("CDDFLOW_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("CDDFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("CDDFLOW_KAFKA_BROKERS")),
			AuditTopic: envOr("CDDFLOW_KAFKA_AUDIT_TOPIC", "cdd.audit"),
		},
		Slack: SlackConfig{
			WebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		},
		Zendesk: ZendeskConfig{
			Subdomain: os.Getenv("ZENDESK_SUBDOMAIN"),
			Email:     os.Getenv("ZENDESK_EMAIL"),
			APIToken:  os.Getenv("ZENDESK_API_TOKEN"),
		},
		Sweeper: SweeperConfig{
			PendingTimeout: envDurationOr("CDDFLOW_LEDGER_PENDING_TIMEOUT", 5*time.Minute),
			Interval:       envDurationOr("CDDFLOW_LEDGER_SWEEP_INTERVAL", time.Minute),
		},
		Auth: AuthConfig{
			JWTSigningKey: os.Getenv("CDDFLOW_JWT_SIGNING_KEY"),
		},
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
