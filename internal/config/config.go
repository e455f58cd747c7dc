// Package config loads application configuration from the environment.
// A .env file in the working directory is read first when present;
// variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// ErrMissing is returned when a required variable is unset or empty.
var ErrMissing = errors.New("missing required env var")

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env            string        // APP_ENV: dev, test or prod
	Port           string        // APP_PORT: HTTP port to listen on
	Store          string        // STORE: mysql or memory
	DB             DBConfig      // DB_*: required when Store is mysql
	JWTSecret      string        // JWT_SECRET: HS256 key for access tokens
	HoldTTL        time.Duration // HOLD_TTL: default hold lifetime
	SweepInterval  time.Duration // SWEEP_INTERVAL: expiry sweep period
	RabbitMQURL    string        // RABBITMQ_URL: empty disables booking events
	BookingLogPath string        // BOOKING_LOG_PATH: audit log written by the consumer
	Redis          RedisConfig
	RateLimit      RateLimitConfig
	Cache          CacheConfig
}

// DBConfig is the MySQL connection.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// IsProd reports whether the application runs in production.
func (c *Config) IsProd() bool { return c.Env == "prod" }

// Load reads the configuration.  Required variables are enforced by
// must(); the first missing one is reported as ErrMissing.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("STORE", StoreMySQL)
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("HOLD_TTL", "5m")
	v.SetDefault("SWEEP_INTERVAL", "5s")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("BOOKING_LOG_PATH", "logs/booking.log")
	setRedisDefaults(v)
	setRateLimitDefaults(v)
	setCacheDefaults(v)
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	l := &loader{v: v}
	cfg := &Config{
		Env:            v.GetString("APP_ENV"),
		Port:           v.GetString("APP_PORT"),
		Store:          strings.ToLower(v.GetString("STORE")),
		JWTSecret:      l.must("JWT_SECRET"),
		HoldTTL:        l.duration("HOLD_TTL"),
		SweepInterval:  l.duration("SWEEP_INTERVAL"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		BookingLogPath: v.GetString("BOOKING_LOG_PATH"),
		Redis:          loadRedisConfig(v),
		RateLimit:      loadRateLimitConfig(v),
		Cache:          loadCacheConfig(v),
	}
	switch cfg.Store {
	case StoreMySQL:
		cfg.DB = DBConfig{
			User: l.must("DB_USER"),
			Pass: v.GetString("DB_PASS"),
			Host: l.must("DB_HOST"),
			Port: l.must("DB_PORT"),
			Name: l.must("DB_NAME"),
		}
	case StoreMemory:
	default:
		l.fail(fmt.Errorf("invalid STORE %q: want %s or %s", cfg.Store, StoreMySQL, StoreMemory))
	}
	if l.err != nil {
		return nil, l.err
	}
	return cfg, nil
}

// loader records the first error so Load can read every key in one pass.
type loader struct {
	v   *viper.Viper
	err error
}

func (l *loader) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

// must retrieves the value of a required variable.
func (l *loader) must(key string) string {
	s := strings.TrimSpace(l.v.GetString(key))
	if s == "" {
		l.fail(fmt.Errorf("%w: %s", ErrMissing, key))
	}
	return s
}

// duration parses a positive duration.
func (l *loader) duration(key string) time.Duration {
	raw := l.v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		l.fail(fmt.Errorf("invalid duration for %s: %q", key, raw))
	}
	return d
}
