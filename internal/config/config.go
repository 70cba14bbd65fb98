package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name    string `envconfig:"APP_NAME" default:"fiado"`
		Version string `envconfig:"APP_VERSION" default:"dev"`
	}

	Log struct {
		Env   string `envconfig:"LOG_ENV" default:"dev"`
		Level string `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"fiado"`
	}

	Redis struct {
		URL         string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
		NotifyQueue string `envconfig:"REDIS_NOTIFY_QUEUE" default:"jobs:email"`
		// Notifications are only logged when disabled.
		Enabled bool `envconfig:"REDIS_ENABLED" default:"true"`
	}

	Ops struct {
		Port    int           `envconfig:"OPS_PORT" default:"9090"`
		Timeout time.Duration `envconfig:"OPS_TIMEOUT" default:"30s"`
	}

	Guard struct {
		CacheTTL time.Duration `envconfig:"GUARD_CACHE_TTL" default:"30s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
