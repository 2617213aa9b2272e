// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	id "trustgate/pkg/domain"
	stringsutil "trustgate/pkg/platform/strings"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Config is the full process configuration.
type Config struct {
	Env  string `env:"TRUSTGATE_ENV" envDefault:"dev"`
	Addr string `env:"TRUSTGATE_ADDR" envDefault:":8080"`

	// DatabaseURL selects the PostgreSQL registry; empty keeps everything in memory.
	DatabaseURL string        `env:"DATABASE_URL"`
	TxTimeout   time.Duration `env:"DB_TX_TIMEOUT" envDefault:"5s"`

	Redis RedisConfig

	GateCacheTTL time.Duration `env:"GATE_CACHE_TTL" envDefault:"5m"`

	JWT JWTConfig

	// ReviewerIDs is the static reviewer allowlist, on top of the reviewer role claim.
	ReviewerIDs []string `env:"REVIEWER_IDS" envSeparator:","`

	// OwnerProfiles seeds the owner directory the review queue searches, as
	// "account_id|display name|email" entries separated by ";".
	OwnerProfiles []string `env:"OWNER_PROFILES" envSeparator:";"`

	Log LogConfig

	Kafka KafkaConfig

	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// RedisConfig configures the distributed gate cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type JWTConfig struct {
	SigningKey string `env:"JWT_SIGNING_KEY"`
	Issuer     string `env:"JWT_ISSUER" envDefault:"trustgate"`
	Audience   string `env:"JWT_AUDIENCE" envDefault:"trustgate-api"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// KafkaConfig configures the audit outbox relay. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string        `env:"KAFKA_TOPIC" envDefault:"trustgate.audit"`
	ClientID     string        `env:"KAFKA_CLIENT_ID" envDefault:"trustgate"`
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// OwnerProfile is one seeded owner directory entry.
type OwnerProfile struct {
	AccountID   id.AccountID
	DisplayName string
	Email       string
}

func (c Config) IsDev() bool { return strings.EqualFold(c.Env, "dev") }

// Load parses and validates the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWT.SigningKey == "" && cfg.IsDev() {
		cfg.JWT.SigningKey = devSigningKey
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWT.SigningKey == "" {
		return errors.New("JWT_SIGNING_KEY is required outside dev")
	}
	if c.GateCacheTTL <= 0 {
		return errors.New("GATE_CACHE_TTL must be positive")
	}
	if c.Kafka.BatchSize <= 0 {
		return errors.New("OUTBOX_BATCH_SIZE must be positive")
	}
	if _, err := c.Reviewers(); err != nil {
		return err
	}
	if _, err := c.Owners(); err != nil {
		return err
	}
	return nil
}

// Reviewers parses REVIEWER_IDS.
func (c Config) Reviewers() ([]id.AccountID, error) {
	raws := stringsutil.DedupeAndTrimLower(c.ReviewerIDs)
	out := make([]id.AccountID, 0, len(raws))
	for _, raw := range raws {
		accountID, err := id.ParseAccountID(raw)
		if err != nil {
			return nil, fmt.Errorf("REVIEWER_IDS: %w", err)
		}
		out = append(out, accountID)
	}
	return out, nil
}

// Owners parses OWNER_PROFILES. Empty entries are skipped.
func (c Config) Owners() ([]OwnerProfile, error) {
	out := make([]OwnerProfile, 0, len(c.OwnerProfiles))
	for _, entry := range c.OwnerProfiles {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		parts := strings.SplitN(entry, "|", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("OWNER_PROFILES: %q must be account_id|display name|email", entry)
		}
		accountID, err := id.ParseAccountID(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("OWNER_PROFILES: %w", err)
		}
		name := strings.TrimSpace(parts[1])
		if name == "" {
			return nil, fmt.Errorf("OWNER_PROFILES: display name is required for %s", accountID)
		}
		out = append(out, OwnerProfile{
			AccountID:   accountID,
			DisplayName: name,
			Email:       strings.TrimSpace(parts[2]),
		})
	}
	return out, nil
}
