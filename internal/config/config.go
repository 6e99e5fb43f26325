package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	ModeDevelopment = "development"
	ModeVerified    = "verified"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "password",
}

type Config struct {
	Port int    `env:"PORT" envDefault:"8080"`
	Mode string `env:"MODE" envDefault:"development"`

	// TrustedOriginSuffix admits sibling apps to cross-origin session
	// exchange and scopes the shared cookie, e.g. "lifedeck.app".
	TrustedOriginSuffix string `env:"TRUSTED_ORIGIN_SUFFIX"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL"`

	TokenSigningSecret string `env:"TOKEN_SIGNING_SECRET"`

	SessionTTLHours      int `env:"SESSION_TTL_HOURS" envDefault:"120"`
	SweepIntervalMinutes int `env:"SWEEP_INTERVAL_MINUTES" envDefault:"60"`
	UpstreamTimeoutMS    int `env:"UPSTREAM_TIMEOUT_MS" envDefault:"1500"`
	SyncRateLimitPerMin  int `env:"SYNC_RATE_LIMIT_PER_MIN" envDefault:"60"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Verified reports whether session cookies must be cryptographically
// verified instead of merely decoded.
func (c *Config) Verified() bool {
	return c.Mode == ModeVerified
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDevelopment, ModeVerified:
	default:
		return fmt.Errorf("MODE must be %q or %q", ModeDevelopment, ModeVerified)
	}

	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if c.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_MINUTES must be positive")
	}

	if c.Verified() {
		if err := validateSecret("TOKEN_SIGNING_SECRET", c.TokenSigningSecret); err != nil {
			return err
		}
		if c.TrustedOriginSuffix == "" {
			return fmt.Errorf("TRUSTED_ORIGIN_SUFFIX is required in verified mode")
		}
		if c.RedisURL != "" && strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in verified mode: consider using rediss://")
		}
	} else if c.TokenSigningSecret == "" {
		log.Warn().Msg("TOKEN_SIGNING_SECRET is empty: exchange tokens will not be minted")
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in verified mode (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
