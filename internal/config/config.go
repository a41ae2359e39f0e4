package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name    string `envconfig:"APP_NAME" default:"Tally"`
		Port    int    `envconfig:"PORT" default:"8080"`
		Storage string `envconfig:"STORAGE" default:"postgres"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"tally"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	Ledger struct {
		Timezone            string `envconfig:"LEDGER_TIMEZONE" default:"UTC"`
		LookaheadMonths     int    `envconfig:"LEDGER_LOOKAHEAD_MONTHS" default:"12"`
		GenerateConcurrency int    `envconfig:"LEDGER_GENERATE_CONCURRENCY" default:"4"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	AMQP struct {
		URL      string `envconfig:"AMQP_URL"`
		Exchange string `envconfig:"AMQP_EXCHANGE" default:"tally.events"`
	}

	TUI struct {
		OwnerID string `envconfig:"TUI_OWNER_ID"`
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

	if cfg.Ledger.LookaheadMonths < 1 {
		return nil, fmt.Errorf("LEDGER_LOOKAHEAD_MONTHS must be at least 1, got %d", cfg.Ledger.LookaheadMonths)
	}

	if cfg.Ledger.GenerateConcurrency < 1 {
		return nil, fmt.Errorf("LEDGER_GENERATE_CONCURRENCY must be at least 1, got %d", cfg.Ledger.GenerateConcurrency)
	}

	switch cfg.App.Storage {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown STORAGE %q: want postgres or memory", cfg.App.Storage)
	}

	return &cfg, nil
}
