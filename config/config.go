// Package config provides Viper-based configuration for the volunteer console
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lborres/volunteer/core"
)

const envPrefix = "VOLUNTEER"

// Token store drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver    = core.ErrUnknownStoreDriver
	ErrInvalidBaseURL   = errors.New("api.base_url must be an absolute http(s) url")
	ErrMissingRedisURL  = errors.New("redis.url is required for the redis driver")
	ErrMissingDSN       = errors.New("postgres.dsn is required for the postgres driver")
	ErrMissingTokenPath = errors.New("token_store.path is required for the file driver")
	ErrInvalidDuration  = errors.New("durations must be positive")
)

// Config represents the complete console configuration
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	TokenStore TokenStoreConfig `mapstructure:"token_store"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Search     SearchConfig     `mapstructure:"search"`
	Profile    ProfileConfig    `mapstructure:"profile"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TokenStoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	// Passphrase seals the token at rest (file and redis drivers).
	Passphrase string `mapstructure:"passphrase"`
	Profile    string `mapstructure:"profile"`
}

type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SearchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type ProfileConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Load reads configuration from file and environment variables
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".volunteer-console")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/volunteer-console")
	}

	// VOLUNTEER_API_BASE_URL overrides api.base_url
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("token_store.driver", DriverFile)
	v.SetDefault("token_store.path", defaultTokenPath())
	v.SetDefault("token_store.passphrase", "")
	v.SetDefault("token_store.profile", "default")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", time.Duration(0))
	v.SetDefault("postgres.dsn", "")

	v.SetDefault("server.addr", ":3000")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("search.debounce", 300*time.Millisecond)
	v.SetDefault("profile.cache_ttl", 2*time.Minute)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".volunteer-console-token")
	}
	return filepath.Join(home, ".config", "volunteer-console", "token")
}

// validate checks configuration for errors
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if cfg.API.Timeout <= 0 || cfg.Search.Debounce <= 0 || cfg.Profile.CacheTTL <= 0 {
		return ErrInvalidDuration
	}

	cfg.TokenStore.Driver = strings.ToLower(strings.TrimSpace(cfg.TokenStore.Driver))
	switch cfg.TokenStore.Driver {
	case DriverMemory:
	case DriverFile:
		if cfg.TokenStore.Path == "" {
			return ErrMissingTokenPath
		}
	case DriverRedis:
		if cfg.Redis.URL == "" {
			return ErrMissingRedisURL
		}
	case DriverPostgres:
		if cfg.Postgres.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.TokenStore.Driver)
	}

	return nil
}
