package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/workforce")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, 24*time.Hour, cfg.LeaveAccrualInterval)
	assert.True(t, cfg.LeaveRateManagerial.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, cfg.LeaveRateStandard.Equal(decimal.RequireFromString("1.25")))
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/workforce")
	t.Setenv("LEAVE_RATE_STANDARD", "1.3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("APP_TIMEZONE", "Asia/Manila")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.LeaveRateStandard.Equal(decimal.RequireFromString("1.3")))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Manila", loc.String())
}

func TestLoadRejectsBadRate(t *testing.T) {
	t.Setenv("LEAVE_RATE_MANAGERIAL", "one and a half")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL:          "postgres://localhost/workforce",
			Timezone:             "UTC",
			MaxBodyBytes:         1 << 20,
			MaxUploadBytes:       10 << 20,
			RateLimitPerMinute:   60,
			LeaveAccrualInterval: time.Hour,
			LeaveAccrualWorkers:  2,
			LeaveRateManagerial:  decimal.RequireFromString("1.5"),
			LeaveRateStandard:    decimal.RequireFromString("1.25"),
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"missing database":   func(c *Config) { c.DatabaseURL = " " },
		"weak prod secret":   func(c *Config) { c.Environment = "production"; c.JWTSecret = "short" },
		"bad timezone":       func(c *Config) { c.Timezone = "Mars/Olympus" },
		"tiny body":          func(c *Config) { c.MaxBodyBytes = 10 },
		"upload below body":  func(c *Config) { c.MaxUploadBytes = 1024 },
		"no workers":         func(c *Config) { c.LeaveAccrualWorkers = 0 },
		"zero rate":          func(c *Config) { c.LeaveRateStandard = decimal.Zero },
		"three place rate":   func(c *Config) { c.LeaveRateStandard = decimal.RequireFromString("1.255") },
		"fine managerial":    func(c *Config) { c.LeaveRateManagerial = decimal.RequireFromString("1.501") },
		"email without smtp": func(c *Config) { c.EmailEnabled = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsTrailingZerosInRates(t *testing.T) {
	cfg := Config{
		DatabaseURL:          "postgres://localhost/workforce",
		Timezone:             "UTC",
		MaxBodyBytes:         1 << 20,
		MaxUploadBytes:       10 << 20,
		RateLimitPerMinute:   60,
		LeaveAccrualInterval: time.Hour,
		LeaveAccrualWorkers:  2,
		LeaveRateManagerial:  decimal.RequireFromString("1.5000"),
		LeaveRateStandard:    decimal.RequireFromString("1.25"),
	}
	assert.NoError(t, cfg.Validate())

	cfg.LeaveRateStandard = decimal.RequireFromString("1.255")
	assert.ErrorContains(t, cfg.Validate(), "LEAVE_RATE_STANDARD must have at most two decimal places")
}
