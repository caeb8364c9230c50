package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Upstream   UpstreamConfig
	Credential CredentialConfig
	Profile    ProfileConfig
	Redis      RedisConfig
	Mongo      MongoConfig
	Audit      AuditConfig

	// LoginRateLimit is the number of auth attempts allowed per IP per minute.
	// Zero disables the limit.
	LoginRateLimit int `env:"LOGIN_RATE_LIMIT, default=10"`
}

type UpstreamConfig struct {
	URL     string        `env:"UPSTREAM_API_URL, default=http://localhost:8081"`
	Timeout time.Duration `env:"UPSTREAM_TIMEOUT, default=10s"`
}

type CredentialConfig struct {
	Backend string        `env:"CREDENTIAL_BACKEND, default=memory"`
	TTL     time.Duration `env:"CREDENTIAL_TTL,     default=10h"`
}

type ProfileConfig struct {
	CookieName string `env:"PROFILE_COOKIE, default=portal_profile"`
	Secret     string `env:"PROFILE_SECRET"`
	Secure     bool   `env:"COOKIE_SECURE,  default=false"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=career_portal"`
}

type AuditConfig struct {
	Enabled bool `env:"AUDIT_ENABLED, default=false"`
	Workers int  `env:"AUDIT_WORKERS, default=4"`
}

// IsDevelopment reports whether the gateway runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch c.Credential.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("CREDENTIAL_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.Credential.Backend))
	}
	if c.Profile.Secret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("PROFILE_SECRET is required outside development"))
	}
	if c.LoginRateLimit < 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
