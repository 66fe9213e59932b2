package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/vovakirdan/roomchat-server/internal/broker"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// PlaceholderJWTSecret is the signing secret of Default. A generated config
// file replaces it with a random one, and Validate refuses it.
const PlaceholderJWTSecret = "change-me"

var (
	// ErrMissingDatabaseURL is returned when a persistent driver has no connection string.
	ErrMissingDatabaseURL = errors.New("database url is required")
	// ErrInsecureJWTSecret is returned when the signing secret is empty or the placeholder.
	ErrInsecureJWTSecret = errors.New("jwt.secret must be set to a private value")
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	CORSOrigins       []string      `mapstructure:"cors_origins" yaml:"cors_origins"`

	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Broker   broker.Config  `mapstructure:"broker" yaml:"broker"`
	JWT      JWTConfig      `mapstructure:"jwt" yaml:"jwt"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	URL         string `mapstructure:"url" yaml:"url"`
	Debug       bool   `mapstructure:"debug" yaml:"debug"`
	AutoMigrate bool   `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// JWTConfig configures token issuing and validation.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	Audience string        `mapstructure:"audience" yaml:"audience"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		MaxMessageBytes:   1 << 16,
		CORSOrigins:       []string{"*"},
		Database: DatabaseConfig{
			Driver:      DriverSQLite,
			URL:         "roomchat.db",
			AutoMigrate: true,
		},
		Broker: broker.DefaultConfig(),
		JWT: JWTConfig{
			Secret:   PlaceholderJWTSecret,
			Issuer:   "roomchat",
			Audience: "roomchat",
			TTL:      24 * time.Hour,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Database.Driver != "" {
		c.Database.Driver = other.Database.Driver
	}
	if other.Database.URL != "" {
		c.Database.URL = other.Database.URL
	}
	if other.Broker.Driver != "" {
		c.Broker.Driver = other.Broker.Driver
	}
}

// Validate checks the configuration before the server starts.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("%w for driver %q", ErrMissingDatabaseURL, c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if !slices.Contains([]string{"", broker.DriverMemory, broker.DriverRedis}, c.Broker.Driver) {
		return fmt.Errorf("unknown broker driver %q", c.Broker.Driver)
	}
	if c.Broker.Driver == broker.DriverRedis && c.Broker.Redis.Address == "" {
		return errors.New("broker.redis.address is required for the redis broker")
	}

	if c.JWT.Secret == "" || c.JWT.Secret == PlaceholderJWTSecret {
		return fmt.Errorf("%w (config file or ROOMCHAT_JWT_SECRET)", ErrInsecureJWTSecret)
	}
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	return nil
}
