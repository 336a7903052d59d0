package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Store:  StoreConfig{DataPath: "/tmp/circulate"},
		Server: ServerConfig{
			Name:         "Circulate Server",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Lending: LendingConfig{
			LoanPeriodDays:    30,
			RenewalPeriodDays: 30,
			FineRatePerDay:    5,
			MaxRenewals:       1,
			MaxActiveLoans:    5,
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_InvalidEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.App.Environment = "testing"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Store.DataPath = ""
	require.Error(t, cfg.Validate())
}

func TestValidate_LendingBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero loan period", func(c *Config) { c.Lending.LoanPeriodDays = 0 }},
		{"negative renewal period", func(c *Config) { c.Lending.RenewalPeriodDays = -1 }},
		{"negative fine rate", func(c *Config) { c.Lending.FineRatePerDay = -5 }},
		{"negative max renewals", func(c *Config) { c.Lending.MaxRenewals = -1 }},
		{"zero max active loans", func(c *Config) { c.Lending.MaxActiveLoans = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("CIRCULATE_TEST_KEY", "from-env")

	// Flag beats env.
	assert.Equal(t, "from-flag", getConfigValue("from-flag", "CIRCULATE_TEST_KEY", "default"))
	// Env beats default.
	assert.Equal(t, "from-env", getConfigValue("", "CIRCULATE_TEST_KEY", "default"))
	// Default when nothing else set.
	assert.Equal(t, "default", getConfigValue("", "CIRCULATE_TEST_MISSING", "default"))
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("CIRCULATE_TEST_INT", "45")

	assert.Equal(t, 45, getIntConfigValue("", "CIRCULATE_TEST_INT", 30))
	assert.Equal(t, 30, getIntConfigValue("", "CIRCULATE_TEST_INT_MISSING", 30))

	t.Setenv("CIRCULATE_TEST_BAD_INT", "many")
	assert.Equal(t, 30, getIntConfigValue("", "CIRCULATE_TEST_BAD_INT", 30))
}

func TestExpandDataPath_Relative(t *testing.T) {
	cfg := validConfig()
	cfg.Store.DataPath = "relative/data"
	require.NoError(t, cfg.expandDataPath())
	assert.True(t, len(cfg.Store.DataPath) > 0 && cfg.Store.DataPath[0] == '/')
}

func TestExpandDataPath_DefaultWhenEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.Store.DataPath = ""
	require.NoError(t, cfg.expandDataPath())
	assert.Contains(t, cfg.Store.DataPath, "Circulate")
}
