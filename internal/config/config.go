package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvPort           = "PORT"
	EnvEnvironment    = "ENVIRONMENT"
	EnvDatabaseDriver = "DATABASE_DRIVER"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvRedisPassword  = "REDIS_PASSWORD"
	EnvRedisDB        = "REDIS_DB"
	EnvJWTSecret      = "JWT_SECRET"
	EnvAuthEnabled    = "AUTH_ENABLED"
	EnvTimezone       = "TIMEZONE"
	EnvFixedTime      = "FIXED_TIME_FOR_TESTS"
	EnvLogLevel       = "LOG_LEVEL"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentTest        = "test"
	EnvironmentProduction  = "production"
)

// ErrMissingDatabaseURL indicates neither the config file nor the environment names a database.
var ErrMissingDatabaseURL = errors.New("missing database url (set `database.url` or DATABASE_URL)")

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	PolicyCache PolicyCacheConfig `yaml:"policy_cache"`
	Throttle    ThrottleConfig    `yaml:"throttle"`
	Breaker     BreakerConfig     `yaml:"breaker"`
	Auth        AuthConfig        `yaml:"auth"`
	Health      HealthConfig      `yaml:"health"`
	Log         LogConfig         `yaml:"log"`

	// IANA zone used for window boundaries; empty means the process zone
	Timezone string `yaml:"timezone"`
	// RFC3339 instant that pins the service clock
	FixedTime string `yaml:"fixed_time"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Environment     string        `yaml:"environment"`
	MaxConnections  int           `yaml:"max_connections"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PolicyCacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type ThrottleConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

type BreakerConfig struct {
	MaxFailures int           `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

type AuthConfig struct {
	Enabled   bool          `yaml:"enabled"`
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`
}

type HealthConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text; empty picks by environment
}

// Default returns the configuration used when no file or environment overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "3000",
			Environment:     EnvironmentDevelopment,
			MaxConnections:  1000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxIdleConns:    10,
			MaxOpenConns:    25,
			ConnMaxLifetime: time.Hour,
			QueryTimeout:    5 * time.Second,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		PolicyCache: PolicyCacheConfig{TTL: 30 * time.Second},
		Throttle:    ThrottleConfig{Enabled: true, RequestsPerMinute: 600},
		Breaker:     BreakerConfig{MaxFailures: 5, Cooldown: 30 * time.Second},
		Auth:        AuthConfig{JWTExpiry: 24 * time.Hour},
		Health:      HealthConfig{Interval: 15 * time.Second, Timeout: 2 * time.Second},
		Log:         LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env(EnvPort); v != "" {
		c.Server.Port = v
	}
	if v := env(EnvEnvironment); v != "" {
		c.Server.Environment = v
	}
	if v := env(EnvDatabaseDriver); v != "" {
		c.Database.Driver = v
	}
	if v := env(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := env(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := env(EnvRedisPassword); v != "" {
		c.Redis.Password = v
	}
	if v := env(EnvRedisDB); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRedisDB, err)
		}
		c.Redis.DB = db
	}
	if v := env(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := env(EnvAuthEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAuthEnabled, err)
		}
		c.Auth.Enabled = enabled
	}
	if v := env(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := env(EnvFixedTime); v != "" {
		c.FixedTime = v
	}
	if v := env(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Server.Environment {
	case EnvironmentDevelopment, EnvironmentTest, EnvironmentProduction:
	default:
		return fmt.Errorf("invalid environment %q: must be one of development, test, production", c.Server.Environment)
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		return ErrMissingDatabaseURL
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("auth is enabled but no jwt secret is configured")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, _, err := c.Clock(); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvironmentDevelopment
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvironmentProduction
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Clock returns the pinned instant when fixed_time is set
func (c *Config) Clock() (time.Time, bool, error) {
	if c.FixedTime == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, c.FixedTime)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid fixed_time %q: %w", c.FixedTime, err)
	}
	return t, true, nil
}

func (r RedisConfig) GetRedisAddr() string {
	if r.Addr != "" {
		return r.Addr
	}
	return r.Host + ":" + r.Port
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
