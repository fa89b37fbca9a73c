package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/eshaffer321/slipcheck/internal/infrastructure/config"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrate applies pending migrations for dialect and returns the resulting
// schema version. Production schemas are owned upstream; this exists for
// local stores and tests.
func Migrate(ctx context.Context, db *sql.DB, dialect string, logger *slog.Logger) (int64, error) {
	var gooseDialect goose.Dialect
	switch dialect {
	case config.DriverPostgres:
		gooseDialect = goose.DialectPostgres
	case config.DriverSQLite:
		gooseDialect = goose.DialectSQLite3
	default:
		return 0, fmt.Errorf("%w: no migrations for driver %q", config.ErrInvalidConfig, dialect)
	}

	dir, err := fs.Sub(migrationFiles, "migrations/"+dialect)
	if err != nil {
		return 0, fmt.Errorf("locate %s migrations: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gooseDialect, db, dir)
	if err != nil {
		return 0, fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	if logger != nil {
		for _, r := range results {
			logger.Info("migration applied", "version", r.Source.Version, "file", r.Source.Path, "duration", r.Duration)
		}
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
