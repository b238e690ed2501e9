// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and GHOSTSLOT_* environment variables on top.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Authentication modes.
const (
	AuthHeader = "header"
	AuthToken  = "token"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store selects the reservation state backend: memory or redis.
	Store         string `koanf:"store"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// ReservationTTLSeconds is how long a reserved slot is held.
	ReservationTTLSeconds int `koanf:"reservation_ttl_seconds"`
	// MaxConflictRetries bounds internal retries of conflicting writes.
	MaxConflictRetries int `koanf:"max_conflict_retries"`
	// MailboxSize bounds pending commands per cohort.
	MailboxSize int `koanf:"mailbox_size"`

	// UniqueSkillsets refuses a submission whose skillset already occupies a
	// slot in any cohort.
	UniqueSkillsets bool `koanf:"unique_skillsets"`

	// DefaultPoolSize applies to cohorts created without a size.
	DefaultPoolSize int `koanf:"default_pool_size"`
	// Cohorts maps cohort numbers to pool sizes created at start.
	Cohorts map[string]int `koanf:"cohorts"`

	// AuthMode selects header or token authentication.
	AuthMode   string            `koanf:"auth_mode"`
	AuthHeader string            `koanf:"auth_header"`
	AuthTokens map[string]string `koanf:"auth_tokens"`

	// RateLimitRPS and RateLimitBurst shape the per-requester token bucket on
	// mutating routes. A non-positive rate disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		Store:                 StoreMemory,
		RedisAddr:             "localhost:6379",
		RedisPrefix:           "ghostslot",
		ReservationTTLSeconds: 600,
		MaxConflictRetries:    3,
		MailboxSize:           1024,
		UniqueSkillsets:       true,
		DefaultPoolSize:       10,
		Cohorts:               map[string]int{},
		AuthMode:              AuthHeader,
		AuthHeader:            "X-Requester-ID",
		AuthTokens:            map[string]string{},
		RateLimitRPS:          5,
		RateLimitBurst:        10,
	}
}

// ReservationTTL returns the reservation hold as a duration.
func (c *Config) ReservationTTL() time.Duration {
	return time.Duration(c.ReservationTTLSeconds) * time.Second
}

// CohortSizes parses Cohorts into cohort number to pool size.
func (c *Config) CohortSizes() (map[int]int, error) {
	out := make(map[int]int, len(c.Cohorts))
	for key, size := range c.Cohorts {
		n, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: cohort %q must be a positive integer", ErrInvalidConfig, key)
		}
		if size < 0 {
			return nil, fmt.Errorf("%w: cohort %d has negative pool size %d", ErrInvalidConfig, n, size)
		}
		out[n] = size
	}
	return out, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.ReservationTTLSeconds <= 0 {
		return fmt.Errorf("%w: reservation_ttl_seconds must be positive", ErrInvalidConfig)
	}
	if c.MaxConflictRetries < 0 {
		return fmt.Errorf("%w: max_conflict_retries must not be negative", ErrInvalidConfig)
	}
	if c.MailboxSize <= 0 {
		return fmt.Errorf("%w: mailbox_size must be positive", ErrInvalidConfig)
	}
	if c.DefaultPoolSize <= 0 {
		return fmt.Errorf("%w: default_pool_size must be positive", ErrInvalidConfig)
	}
	switch c.AuthMode {
	case AuthHeader:
	case AuthToken:
		if len(c.AuthTokens) == 0 {
			return fmt.Errorf("%w: auth_tokens must not be empty in token mode", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown auth_mode %q", ErrInvalidConfig, c.AuthMode)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: rate_limit_burst must be positive when rate limiting", ErrInvalidConfig)
	}
	if _, err := c.CohortSizes(); err != nil {
		return err
	}
	return nil
}
