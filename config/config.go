package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Cloudinary   CloudinaryConfig   `mapstructure:"cloudinary"`
	Firebase     FirebaseConfig     `mapstructure:"firebase"`
	Interest     InterestConfig     `mapstructure:"interest"`
	Notification NotificationConfig `mapstructure:"notification"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Env          string        `mapstructure:"env"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// JWTConfig verifies access tokens minted by the identity provider.
type JWTConfig struct {
	AccessSecret string `mapstructure:"access_secret"`
	Issuer       string `mapstructure:"issuer"`
}

type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// FirebaseConfig enables FCM push when a service account file is set.
type FirebaseConfig struct {
	ServiceAccountPath string `mapstructure:"service_account_path"`
}

// InterestConfig bounds the interest protocol.
type InterestConfig struct {
	MaxActiveSent int `mapstructure:"max_active_sent"`
	MaxAccepted   int `mapstructure:"max_accepted"`
	MaxAttempts   int `mapstructure:"max_attempts"` // per atomic check-then-write
}

type NotificationConfig struct {
	RetryQueueSize   int           `mapstructure:"retry_queue_size"`
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

const envPrefix = "MATCHWELL"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8099")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "matchwell:matchwell@tcp(localhost:3306)/matchwell?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("jwt.access_secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "matchwell")

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")

	v.SetDefault("firebase.service_account_path", "")

	v.SetDefault("interest.max_active_sent", 3)
	v.SetDefault("interest.max_accepted", 3)
	v.SetDefault("interest.max_attempts", 3)

	v.SetDefault("notification.retry_queue_size", 1024)
	v.SetDefault("notification.retry_max_attempts", 5)
	v.SetDefault("notification.retry_backoff", 2*time.Second)

	v.SetDefault("rate_limit.requests_per_minute", 100)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and MATCHWELL_* environment variables (e.g. MATCHWELL_DATABASE_DSN).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Interest.MaxActiveSent <= 0 || c.Interest.MaxAccepted <= 0 {
		return fmt.Errorf("interest caps must be positive (max_active_sent=%d, max_accepted=%d)",
			c.Interest.MaxActiveSent, c.Interest.MaxAccepted)
	}
	if c.Interest.MaxAttempts <= 0 {
		c.Interest.MaxAttempts = 1
	}
	return nil
}
