package auth

import (
	"errors"
	"os"
	"time"

	"github.com/chiremba/chiremba-api/pkg/utilities"
)

const minSecretLen = 32

// Config holds token signing settings.
type Config struct {
	Secret     string
	Issuer     string
	SessionTTL time.Duration
	SetupTTL   time.Duration
	Env        string
}

// ConfigFromEnv reads JWT_SECRET, JWT_TTL, SETUP_TOKEN_TTL and APP_ENV.
func ConfigFromEnv() Config {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "production"
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "chiremba-api"
	}
	return Config{
		Secret:     os.Getenv("JWT_SECRET"),
		Issuer:     issuer,
		SessionTTL: utilities.DurationFromEnv("JWT_TTL", 24*time.Hour),
		SetupTTL:   utilities.DurationFromEnv("SETUP_TOKEN_TTL", time.Hour),
		Env:        env,
	}
}

// Validate rejects a missing secret, and a short one outside development.
func (c Config) Validate() error {
	if c.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.Secret) < minSecretLen && c.Env != "development" {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.SessionTTL <= 0 || c.SetupTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}
