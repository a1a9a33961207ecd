// Package config loads the gateway configuration from an optional YAML
// file with environment-variable overrides. The Config struct is built
// once in main and handed to each component; nothing reads settings from
// ambient globals.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all gateway settings.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Audit      AuditConfig      `yaml:"audit"`
	Auth       AuthConfig       `yaml:"auth"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":8080"
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ClickHouseConfig struct {
	DSN string `yaml:"dsn"` // empty = use the embedded bolt audit store
}

type AuditConfig struct {
	BoltPath string `yaml:"bolt_path"` // local audit store file
}

type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	KeyCacheTTLSecs int    `yaml:"key_cache_ttl_seconds"`
}

// TokenTTL returns the admin token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// KeyCacheTTL returns the API-key cache lifetime.
func (a AuthConfig) KeyCacheTTL() time.Duration {
	return time.Duration(a.KeyCacheTTLSecs) * time.Second
}

// Load reads configuration from a YAML file, applies defaults, and then
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config.Load: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config.Load: %w", err)
			}
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("config.Load: auth.jwt_secret (ANZEN_JWT_SECRET) is required")
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info"},
		Audit:   AuditConfig{BoltPath: "anzen-audit.db"},
		Auth: AuthConfig{
			TokenTTLMinutes: 30,
			KeyCacheTTLSecs: 30,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "ANZEN_HTTP_ADDR")
	setString(&cfg.Logging.Level, "ANZEN_LOG_LEVEL")
	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setString(&cfg.ClickHouse.DSN, "CLICKHOUSE_DSN")
	setString(&cfg.Audit.BoltPath, "ANZEN_AUDIT_BOLT_PATH")
	setString(&cfg.Auth.JWTSecret, "ANZEN_JWT_SECRET")
	setInt(&cfg.Auth.TokenTTLMinutes, "ANZEN_TOKEN_TTL_MINUTES")
	setInt(&cfg.Auth.KeyCacheTTLSecs, "ANZEN_KEY_CACHE_TTL_S")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Audit.BoltPath == "" {
		cfg.Audit.BoltPath = "anzen-audit.db"
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 30
	}
	if cfg.Auth.KeyCacheTTLSecs <= 0 {
		cfg.Auth.KeyCacheTTLSecs = 30
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
