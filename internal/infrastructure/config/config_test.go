package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Empty(t, cfg.Database.Password, "no credentials by default")
	assert.Equal(t, 10*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "check_transfer", cfg.Reconcile.CallerID)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", "test.db")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_QUERY_TIMEOUT", "3")
	t.Setenv("API_CALLER_ID", "line_bot")
	t.Setenv("AUTO_RECONCILE", "true")
	t.Setenv("LOG_FORMAT", "json")

	cfg := LoadFromEnv()

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 3*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "line_bot", cfg.Reconcile.CallerID)
	assert.True(t, cfg.Reconcile.AutoReconcile)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("TEST_DB_PASSWORD", "from-env")
	content := `
database:
  driver: postgres
  host: db.internal
  password: ${TEST_DB_PASSWORD}
  query_timeout: 2s
matching:
  amount_tolerance: "0.50"
  time_tolerance_minutes: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, 2*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, 5432, cfg.Database.Port, "unset keys keep defaults")
	assert.Equal(t, 30, cfg.Matching.TimeToleranceMinutes)
	assert.Equal(t, 1, cfg.Matching.DateToleranceDays)

	tol, err := cfg.Matching.Tolerances()
	require.NoError(t, err)
	assert.Equal(t, "0.5", tol.Amount.String())
	assert.Equal(t, 5, tol.MatchTimeMinutes)
}

func TestLoad_CallerIDFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reconcile:\n  caller_id: from_file\n"), 0o600))

	t.Setenv("API_CALLER_ID", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.Reconcile.CallerID)

	t.Setenv("API_CALLER_ID", "line_bot")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "line_bot", cfg.Reconcile.CallerID)
}

func TestLoad_ZeroMatchWindowIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matching:\n  match_time_tolerance_minutes: 0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	tol, err := cfg.Matching.Tolerances()
	require.NoError(t, err)
	assert.Equal(t, 0, tol.MatchTimeMinutes)
}

func TestLoadOrEnvWithPath_MissingFile(t *testing.T) {
	t.Setenv("DB_HOST", "env-host")

	cfg := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, "env-host", cfg.Database.Host)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"zero timeout", func(c *Config) { c.Database.QueryTimeout = 0 }},
		{"bad tolerance", func(c *Config) { c.Matching.AmountTolerance = "abc" }},
		{"negative tolerance", func(c *Config) { c.Matching.DateToleranceDays = -1 }},
		{"zero limit", func(c *Config) { c.Matching.Limit = 0 }},
		{"empty caller", func(c *Config) { c.Reconcile.CallerID = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
