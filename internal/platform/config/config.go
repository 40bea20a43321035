package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	Addr                 string          `env:"APP_ADDR" envDefault:":8080"`
	DatabaseURL          string          `env:"DATABASE_URL"`
	JWTSecret            string          `env:"JWT_SECRET"`
	Environment          string          `env:"APP_ENV" envDefault:"development"`
	Timezone             string          `env:"APP_TIMEZONE" envDefault:"UTC"`
	RunMigrations        bool            `env:"RUN_MIGRATIONS" envDefault:"true"`
	MigrationsDir        string          `env:"MIGRATIONS_DIR"`
	MaxBodyBytes         int64           `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	MaxUploadBytes       int64           `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	RateLimitPerMinute   int             `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	CORSAllowedOrigins   []string        `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	LeaveAccrualInterval time.Duration   `env:"LEAVE_ACCRUAL_INTERVAL" envDefault:"24h"`
	LeaveAccrualWorkers  int             `env:"LEAVE_ACCRUAL_WORKERS" envDefault:"4"`
	LeaveRateManagerial  decimal.Decimal `env:"LEAVE_RATE_MANAGERIAL" envDefault:"1.5"`
	LeaveRateStandard    decimal.Decimal `env:"LEAVE_RATE_STANDARD" envDefault:"1.25"`
	EmailFrom            string          `env:"EMAIL_FROM" envDefault:"no-reply@example.com"`
	EmailEnabled         bool            `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTPHost             string          `env:"SMTP_HOST"`
	SMTPPort             int             `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser             string          `env:"SMTP_USER"`
	SMTPPassword         string          `env:"SMTP_PASSWORD"`
	SMTPUseTLS           bool            `env:"SMTP_USE_TLS" envDefault:"true"`
	MetricsEnabled       bool            `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load reads the configuration from the environment. Call Validate before use.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location resolves APP_TIMEZONE. Month boundaries and shift dates use it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && len(strings.TrimSpace(c.JWTSecret)) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxUploadBytes < c.MaxBodyBytes {
		return fmt.Errorf("MAX_UPLOAD_BYTES must not be smaller than MAX_BODY_BYTES")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.LeaveAccrualInterval <= 0 {
		return fmt.Errorf("LEAVE_ACCRUAL_INTERVAL must be positive")
	}
	if c.LeaveAccrualWorkers < 1 {
		return fmt.Errorf("LEAVE_ACCRUAL_WORKERS must be at least 1")
	}
	if !c.LeaveRateManagerial.IsPositive() || !c.LeaveRateStandard.IsPositive() {
		return fmt.Errorf("LEAVE_RATE_MANAGERIAL and LEAVE_RATE_STANDARD must be positive")
	}
	// Ledger columns hold two decimal places.
	for name, rate := range map[string]decimal.Decimal{
		"LEAVE_RATE_MANAGERIAL": c.LeaveRateManagerial,
		"LEAVE_RATE_STANDARD":   c.LeaveRateStandard,
	} {
		if !rate.Equal(rate.Round(2)) {
			return fmt.Errorf("%s must have at most two decimal places", name)
		}
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
