// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Store   StoreConfig
	Server  ServerConfig
	Lending LendingConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	// DataPath is the base directory for the database and search index.
	DataPath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// LendingConfig holds the circulation policy knobs.
// These are policy, not code: campuses tune them without a rebuild.
type LendingConfig struct {
	// LoanPeriodDays is the borrowing window applied at issue time (default: 30).
	LoanPeriodDays int
	// RenewalPeriodDays is the extension granted per renewal (default: 30).
	RenewalPeriodDays int
	// FineRatePerDay is the overdue fine in minor currency units per day (default: 5).
	FineRatePerDay int64
	// MaxRenewals caps renewals per loan (default: 1).
	MaxRenewals int
	// MaxActiveLoans caps concurrent active loans per student (default: 5).
	MaxActiveLoans int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for database and search index")
	serverName := flag.String("server-name", "", "Name for the server")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	loanPeriod := flag.String("loan-period-days", "", "Borrowing window in days (default: 30)")
	renewalPeriod := flag.String("renewal-period-days", "", "Renewal extension in days (default: 30)")
	fineRate := flag.String("fine-rate", "", "Overdue fine per day in minor units (default: 5)")
	maxRenewals := flag.String("max-renewals", "", "Maximum renewals per loan (default: 1)")
	maxActiveLoans := flag.String("max-active-loans", "", "Maximum active loans per student (default: 5)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "Circulate Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Lending: LendingConfig{
			LoanPeriodDays:    getIntConfigValue(*loanPeriod, "LENDING_LOAN_PERIOD_DAYS", 30),
			RenewalPeriodDays: getIntConfigValue(*renewalPeriod, "LENDING_RENEWAL_PERIOD_DAYS", 30),
			FineRatePerDay:    int64(getIntConfigValue(*fineRate, "LENDING_FINE_RATE", 5)),
			MaxRenewals:       getIntConfigValue(*maxRenewals, "LENDING_MAX_RENEWALS", 1),
			MaxActiveLoans:    getIntConfigValue(*maxActiveLoans, "LENDING_MAX_ACTIVE_LOANS", 5),
		},
	}

	// Parse server timeouts.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Store.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Lending.LoanPeriodDays <= 0 {
		return fmt.Errorf("loan period must be positive, got %d", c.Lending.LoanPeriodDays)
	}
	if c.Lending.RenewalPeriodDays <= 0 {
		return fmt.Errorf("renewal period must be positive, got %d", c.Lending.RenewalPeriodDays)
	}
	if c.Lending.FineRatePerDay < 0 {
		return fmt.Errorf("fine rate cannot be negative, got %d", c.Lending.FineRatePerDay)
	}
	if c.Lending.MaxRenewals < 0 {
		return fmt.Errorf("max renewals cannot be negative, got %d", c.Lending.MaxRenewals)
	}
	if c.Lending.MaxActiveLoans <= 0 {
		return fmt.Errorf("max active loans must be positive, got %d", c.Lending.MaxActiveLoans)
	}

	return nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/Circulate/data when unset.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Circulate", "data")

	path := c.Store.DataPath
	if path == "" {
		c.Store.DataPath = defaultPath
		return nil
	}

	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	c.Store.DataPath = filepath.Clean(path)
	return nil
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), raw, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
