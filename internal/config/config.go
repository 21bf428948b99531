// Package config loads service configuration from a .env file, an optional
// YAML file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Retention     RetentionConfig     `yaml:"retention"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

type ServerConfig struct {
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

// RedisConfig configures the cache tier. An empty Addr runs without it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RetentionConfig struct {
	Cron   string        `yaml:"cron"`
	Window time.Duration `yaml:"window"`
}

type NotificationsConfig struct {
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	CacheLimit int           `yaml:"cache_limit"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server:        ServerConfig{Port: "8080", AllowedOrigins: "http://localhost:3000"},
		Database:      DatabaseConfig{Migrate: true},
		Logging:       LoggingConfig{Level: "info", Format: "text"},
		Retention:     RetentionConfig{Cron: "0 * * * *", Window: 24 * time.Hour},
		Notifications: NotificationsConfig{CacheTTL: 24 * time.Hour, CacheLimit: 100},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &c.Server.Port)
	str("ALLOWED_ORIGINS", &c.Server.AllowedOrigins)
	str("DATABASE_URL", &c.Database.URL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("RETENTION_CRON", &c.Retention.Cron)

	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v, ok := lookup("NOTIFICATION_CACHE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NOTIFICATION_CACHE_LIMIT: %w", err)
		}
		c.Notifications.CacheLimit = n
	}
	if v, ok := lookup("DATABASE_MIGRATE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DATABASE_MIGRATE: %w", err)
		}
		c.Database.Migrate = b
	}

	durations := map[string]*time.Duration{
		"RETENTION_WINDOW":       &c.Retention.Window,
		"NOTIFICATION_CACHE_TTL": &c.Notifications.CacheTTL,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if !gronx.IsValid(c.Retention.Cron) {
		errs = append(errs, fmt.Errorf("invalid retention cron expression: %q", c.Retention.Cron))
	}
	if c.Retention.Window <= 0 {
		errs = append(errs, errors.New("retention window must be positive"))
	}
	if c.Notifications.CacheTTL <= 0 {
		errs = append(errs, errors.New("notification cache ttl must be positive"))
	}
	if c.Notifications.CacheLimit <= 0 {
		errs = append(errs, errors.New("notification cache limit must be positive"))
	}
	return errors.Join(errs...)
}

// ListenAddr is the address fiber listens on
func (c *Config) ListenAddr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}
