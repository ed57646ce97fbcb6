// Copyright (c) 2026 Optica. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Optica API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis) — login-attempt throttling
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing. The secret is the HMAC key for both access and refresh
	// tokens and must be at least 32 bytes.
	JWTSecret       string        `env:"JWT_SECRET,required"`
	JWTIssuer       string        `env:"JWT_ISSUER"        envDefault:"optica"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"24h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// TOTPIssuer is the issuer label shown in authenticator apps.
	TOTPIssuer string `env:"TOTP_ISSUER" envDefault:"Optica"`

	// Login throttling (per username+IP)
	LoginAttemptLimit  int           `env:"LOGIN_ATTEMPT_LIMIT"  envDefault:"5"`
	LoginAttemptWindow time.Duration `env:"LOGIN_ATTEMPT_WINDOW" envDefault:"5m"`

	// Outbound email (verification codes). When SMTPHost is empty the mailer
	// falls back to logging codes, which is intended for local development only.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	// Federated login (Google OIDC). Empty ClientID disables the endpoint.
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("config: JWT_SECRET must be at least 32 bytes, got %d", len(cfg.JWTSecret))
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SMTPConfigured reports whether an outbound SMTP relay has been set up.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != ""
}

// AllowsOrigin reports whether the given Origin header value is permitted
// to make cross-origin requests against the API.
//
// First-party origins under optica.app are always allowed; additional
// origins come from the comma-separated EXTRA_ORIGINS variable.
func (c *Config) AllowsOrigin(origin string) bool {
	if strings.HasSuffix(origin, "optica.app") {
		return true
	}

	for _, allowed := range strings.Split(c.ExtraOrigins, ",") {
		if allowed != "" && strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	return false
}
