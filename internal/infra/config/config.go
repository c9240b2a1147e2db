package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	SiteURL          string `env:"SITE_URL"           envDefault:"http://127.0.0.1:8000"`
	DefaultFromEmail string `env:"DEFAULT_FROM_EMAIL" envDefault:"news@localhost"`
	DatabaseURL      string `env:"DATABASE_URL,required,notEmpty"`
	HTTPAddr         string `env:"HTTP_ADDR"          envDefault:":8000"`
	LogLevel         string `env:"LOG_LEVEL"          envDefault:"info"`
	Environment      string `env:"ENVIRONMENT"        envDefault:"development"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"25"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	NotifyAsync       bool `env:"NOTIFY_ASYNC"       envDefault:"false"` // hand the send to the worker
	NotifyDeduplicate bool `env:"NOTIFY_DEDUPLICATE" envDefault:"false"` // drop repeated recipient addresses

	SessionTTL            time.Duration `env:"SESSION_TTL"              envDefault:"336h"`
	WorkerPollInterval    time.Duration `env:"WORKER_POLL_INTERVAL"     envDefault:"2s"`
	CronSpecWeeklyDigest  string        `env:"CRON_SPEC_WEEKLY_DIGEST"  envDefault:"0 8 * * 1"` // Monday 08:00
	CronSpecClearSessions string        `env:"CRON_SPEC_CLEAR_SESSIONS" envDefault:"30 3 * * *"`

	TelegramToken     string `env:"TELEGRAM_TOKEN"`
	TelegramChannelID int64  `env:"TELEGRAM_CHANNEL_ID"`
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing file is fine.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() error {
	c.SiteURL = strings.TrimRight(strings.TrimSpace(c.SiteURL), "/")
	if _, err := url.ParseRequestURI(c.SiteURL); err != nil {
		return fmt.Errorf("invalid SITE_URL %q: %w", c.SiteURL, err)
	}

	c.DefaultFromEmail = strings.TrimSpace(c.DefaultFromEmail)
	if c.DefaultFromEmail == "" {
		return fmt.Errorf("DEFAULT_FROM_EMAIL is empty")
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))

	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("invalid SMTP_PORT %d", c.SMTPPort)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.WorkerPollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive")
	}
	return nil
}

// TelegramEnabled reports whether channel announcements are configured.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChannelID != 0
}
