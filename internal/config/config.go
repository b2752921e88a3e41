// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of passkeyd.
//
// passkeyd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads the daemon configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete daemon configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	RelyingParty RelyingPartyConfig `yaml:"relying_party"`
	Session      SessionConfig      `yaml:"session"`
	Storage      StorageConfig      `yaml:"storage"`
}

// ServerConfig contains server-level settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// LoginURL is where the access gate redirects unauthenticated page
	// requests.
	LoginURL string `yaml:"login_url"`

	// SecureCookies marks session cookies Secure. Enable behind TLS.
	SecureCookies bool `yaml:"secure_cookies"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RelyingPartyConfig identifies the WebAuthn relying party.
type RelyingPartyConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	Origin      string `yaml:"origin"`

	// ChallengeTTL bounds how long an issued ceremony challenge stays valid.
	ChallengeTTL Duration `yaml:"challenge_ttl"`
}

// SessionConfig controls session token issuance.
type SessionConfig struct {
	// Secret is the HMAC signing key for session tokens.
	Secret string `yaml:"secret"`

	RegistrationTTL   Duration `yaml:"registration_ttl"`
	AuthenticationTTL Duration `yaml:"authentication_ttl"`
}

// StorageConfig selects the store backend.
type StorageConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file for the sqlite driver.
	Path string `yaml:"path"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			LoginURL: "/login",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "passkeyd.db",
		},
	}
}

// Load reads configuration from a YAML file and applies environment variable
// overrides. An empty path loads defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by admin/user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	// Server settings
	if host := os.Getenv("PASSKEYD_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PASSKEYD_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			log.Printf("Warning: invalid PASSKEYD_PORT value %q, using default %d",
				portStr, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}
	if loginURL := os.Getenv("PASSKEYD_LOGIN_URL"); loginURL != "" {
		cfg.Server.LoginURL = loginURL
	}
	if secure := os.Getenv("PASSKEYD_SECURE_COOKIES"); secure != "" {
		cfg.Server.SecureCookies = secure == "true" || secure == "1"
	}

	// Logging
	if level := os.Getenv("PASSKEYD_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("PASSKEYD_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Relying party
	if rpID := os.Getenv("PASSKEYD_RP_ID"); rpID != "" {
		cfg.RelyingParty.ID = rpID
	}
	if rpName := os.Getenv("PASSKEYD_RP_NAME"); rpName != "" {
		cfg.RelyingParty.DisplayName = rpName
	}
	if origin := os.Getenv("PASSKEYD_RP_ORIGIN"); origin != "" {
		cfg.RelyingParty.Origin = origin
	}
	if ttl := os.Getenv("PASSKEYD_CHALLENGE_TTL"); ttl != "" {
		parsed, err := time.ParseDuration(ttl)
		if err != nil {
			log.Printf("Warning: invalid PASSKEYD_CHALLENGE_TTL value %q: %v", ttl, err)
		} else {
			cfg.RelyingParty.ChallengeTTL = Duration(parsed)
		}
	}

	// Session
	if secret := os.Getenv("PASSKEYD_SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = secret
	}

	// Storage
	if driver := os.Getenv("PASSKEYD_STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if path := os.Getenv("PASSKEYD_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.RelyingParty.ID == "" {
		return fmt.Errorf("relying_party.id is required")
	}
	if c.RelyingParty.DisplayName == "" {
		return fmt.Errorf("relying_party.display_name is required")
	}
	if c.RelyingParty.Origin == "" {
		return fmt.Errorf("relying_party.origin is required")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret is required")
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be sqlite or memory)", c.Storage.Driver)
	}

	return nil
}
