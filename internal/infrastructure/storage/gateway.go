// Package storage is the gateway to the incoming-transfer store.
//
// The same SQL runs against PostgreSQL (production, via pgx) and SQLite
// (local runs and tests). Statements are written with ? placeholders and
// rebound for the active driver.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/eshaffer321/slipcheck/internal/infrastructure/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	pgxDriverName    = "pgx"
	sqliteDriverName = "sqlite3"

	defaultQueryTimeout = 10 * time.Second
)

// Gateway owns the connection pool to the transaction store.
// It implements the Repository interface.
type Gateway struct {
	db           *sqlx.DB
	dialect      string // config.DriverPostgres or config.DriverSQLite
	queryTimeout time.Duration
	logger       *slog.Logger
}

// Compile-time check that Gateway implements Repository
var _ Repository = (*Gateway)(nil)

// Open connects to the store described by cfg and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Gateway, error) {
	g, err := Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := g.Ping(ctx); err != nil {
		_ = g.Close()
		return nil, fmt.Errorf("connect to %s store: %w", cfg.Driver, err)
	}
	return g, nil
}

// Connect prepares the connection pool without contacting the store.
// Connection failures surface on the first Session or Ping.
func Connect(cfg config.DatabaseConfig, logger *slog.Logger) (*Gateway, error) {
	driverName, dsn, err := DataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{
		db:           db,
		dialect:      cfg.Driver,
		queryTimeout: timeout,
		logger:       logger,
	}, nil
}

// DataSource returns the database/sql driver name and DSN for cfg.
func DataSource(cfg config.DatabaseConfig) (driverName, dsn string, err error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		q := url.Values{}
		if cfg.SSLMode != "" {
			q.Set("sslmode", cfg.SSLMode)
		}
		if cfg.QueryTimeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(int(cfg.QueryTimeout.Seconds())))
		}
		u := url.URL{
			Scheme:   "postgres",
			Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:     "/" + cfg.Name,
			RawQuery: q.Encode(),
		}
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else if cfg.User != "" {
			u.User = url.User(cfg.User)
		}
		return pgxDriverName, u.String(), nil
	case config.DriverSQLite:
		if cfg.Path == "" {
			return "", "", fmt.Errorf("%w: sqlite3 requires database.path", config.ErrInvalidConfig)
		}
		return sqliteDriverName, cfg.Path + "?_busy_timeout=5000", nil
	default:
		return "", "", fmt.Errorf("%w: unknown database driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

// Session reserves a pooled connection for one reconciliation call.
func (g *Gateway) Session(ctx context.Context) (Session, error) {
	conn, err := g.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire store connection: %w", err)
	}
	return &session{
		conn:       conn,
		driverName: g.db.DriverName(),
		timeout:    g.queryTimeout,
		logger:     g.logger,
	}, nil
}

// Ping checks the store is reachable within the query timeout.
func (g *Gateway) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()
	return g.db.PingContext(ctx)
}

// Close closes the connection pool
func (g *Gateway) Close() error {
	return g.db.Close()
}

// Migrate applies the embedded schema migrations for the active dialect.
func (g *Gateway) Migrate(ctx context.Context) (int64, error) {
	return Migrate(ctx, g.db.DB, g.dialect, g.logger)
}

// Insert stores a new incoming transfer and returns its id. It is used to
// load local stores; production rows come from upstream ingestion.
func (g *Gateway) Insert(ctx context.Context, rec transaction.Record) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()
	return g.insert(ctx, g.db, rec)
}

// InsertAll stores recs in one transaction and returns the ids in order.
// Either every row is stored or none is.
func (g *Gateway) InsertAll(ctx context.Context, recs []transaction.Record) ([]int64, error) {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, 0, len(recs))
	for i, rec := range recs {
		stmtCtx, cancel := context.WithTimeout(ctx, g.queryTimeout)
		id, err := g.insert(stmtCtx, tx, rec)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return ids, nil
}

func (g *Gateway) insert(ctx context.Context, q sqlx.QueryerContext, rec transaction.Record) (int64, error) {
	var transferTime any
	if rec.TransferTime != nil {
		transferTime = rec.TransferTime.String()
	}
	var amount any
	if rec.Amount.Valid {
		amount = rec.Amount.Decimal.String()
	}

	query := g.db.Rebind(`
	INSERT INTO bank_incoming_transaction
	(transaction_id, amount, transfer_date, transfer_time,
	 sender_account_number, sender_account, receiver_account_number,
	 sender_name, status_reconcile)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id
	`)

	var id int64
	err := q.QueryRowxContext(ctx, query,
		nullString(rec.TransactionID),
		amount,
		rec.TransferDate.Format(time.DateOnly),
		transferTime,
		nullString(rec.SenderAccount),
		nullString(rec.SenderAccountAlt),
		nullString(rec.ReceiverAccount),
		nullString(rec.SenderName),
		nullString(rec.ReconcileStatus),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
