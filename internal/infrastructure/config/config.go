// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} expansion
//  2. Environment variables (fallback)
//
// Values missing from the YAML file keep the defaults from Defaults().
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	gw, err := storage.Open(ctx, cfg.Database, logger)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the entire application configuration
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Matching      MatchingConfig      `yaml:"matching"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DatabaseConfig holds the transaction store connection settings.
// Host, name, user, password, port and sslmode apply to postgres; Path
// applies to sqlite3.
type DatabaseConfig struct {
	Driver       string        `yaml:"driver"`
	Host         string        `yaml:"host"`
	Name         string        `yaml:"name"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Port         int           `yaml:"port"`
	SSLMode      string        `yaml:"sslmode"`
	Path         string        `yaml:"path"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
}

// MatchingConfig holds the default tolerances applied when a caller does not
// supply its own.
type MatchingConfig struct {
	AmountTolerance           string `yaml:"amount_tolerance"`
	DateToleranceDays         int    `yaml:"date_tolerance_days"`
	TimeToleranceMinutes      int    `yaml:"time_tolerance_minutes"`
	MatchTimeToleranceMinutes int    `yaml:"match_time_tolerance_minutes"`
	Limit                     int    `yaml:"limit"`
}

// ReconcileConfig controls write-back.
type ReconcileConfig struct {
	AutoReconcile bool   `yaml:"auto_reconcile"`
	CallerID      string `yaml:"caller_id"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Defaults returns the configuration used when nothing else is set.
// No credentials are included.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       DriverPostgres,
			Host:         "localhost",
			Name:         "postgres",
			User:         "postgres",
			Port:         5432,
			SSLMode:      "require",
			Path:         "slipcheck.db",
			QueryTimeout: 10 * time.Second,
			MaxOpenConns: 10,
		},
		Matching: MatchingConfig{
			AmountTolerance:           "0.00",
			DateToleranceDays:         1,
			TimeToleranceMinutes:      60,
			MatchTimeToleranceMinutes: transaction.DefaultMatchTimeMinutes,
			Limit:                     transaction.DefaultLimit,
		},
		Reconcile: ReconcileConfig{
			CallerID: "check_transfer",
		},
		Server: ServerConfig{
			Port:           8085,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// Load reads and parses the config file. A non-empty API_CALLER_ID
// overrides reconcile.caller_id.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${DB_PASSWORD})
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	// The caller identity follows the environment when it is set.
	if id := os.Getenv("API_CALLER_ID"); id != "" {
		cfg.Reconcile.CallerID = id
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	d := Defaults()
	return &Config{
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", d.Database.Driver),
			Host:         getEnv("DB_HOST", d.Database.Host),
			Name:         getEnv("DB_NAME", d.Database.Name),
			User:         getEnv("DB_USER", d.Database.User),
			Password:     os.Getenv("DB_PASSWORD"),
			Port:         getEnvInt("DB_PORT", d.Database.Port),
			SSLMode:      getEnv("DB_SSLMODE", d.Database.SSLMode),
			Path:         getEnv("DB_PATH", d.Database.Path),
			QueryTimeout: getEnvDuration("DB_QUERY_TIMEOUT", d.Database.QueryTimeout),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
		},
		Matching: d.Matching,
		Reconcile: ReconcileConfig{
			AutoReconcile: getEnvBool("AUTO_RECONCILE", false),
			CallerID:      getEnv("API_CALLER_ID", d.Reconcile.CallerID),
		},
		Server: ServerConfig{
			Port:           getEnvInt("PORT", d.Server.Port),
			AllowedOrigins: d.Server.AllowedOrigins,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", d.Observability.Logging.Format),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("%w: database.query_timeout must be positive", ErrInvalidConfig)
	}
	if _, err := c.Matching.Tolerances(); err != nil {
		return err
	}
	if c.Matching.Limit <= 0 {
		return fmt.Errorf("%w: matching.limit must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Reconcile.CallerID) == "" {
		return fmt.Errorf("%w: reconcile.caller_id is required", ErrInvalidConfig)
	}
	return nil
}

// Tolerances converts the matching defaults into domain tolerances.
func (m MatchingConfig) Tolerances() (transaction.Tolerances, error) {
	amount := decimal.Zero
	if s := strings.TrimSpace(m.AmountTolerance); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return transaction.Tolerances{}, fmt.Errorf("%w: matching.amount_tolerance %q: %v", ErrInvalidConfig, s, err)
		}
		amount = d
	}
	if amount.IsNegative() || m.DateToleranceDays < 0 || m.TimeToleranceMinutes < 0 || m.MatchTimeToleranceMinutes < 0 {
		return transaction.Tolerances{}, fmt.Errorf("%w: matching tolerances must not be negative", ErrInvalidConfig)
	}
	return transaction.Tolerances{
		Amount:           amount,
		DateDays:         m.DateToleranceDays,
		TimeMinutes:      m.TimeToleranceMinutes,
		MatchTimeMinutes: m.MatchTimeToleranceMinutes,
	}, nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
