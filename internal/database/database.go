// Package database provides database connectivity and management for the INSPIRE papers catalog.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/czczc/inspire-papers-viewer/internal/config"
)

// Database operational constants.
const (
	// HealthCheckTimeout bounds the ping and schema check behind Health.
	HealthCheckTimeout = 5 * time.Second

	// SchemaTable must exist before the store can serve requests.
	SchemaTable = "small_papers"

	// ApplicationName identifies the pool's sessions in pg_stat_activity.
	ApplicationName = "inspire-papers"
)

// HealthStatus contains database health information.
type HealthStatus struct {
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	SchemaReady   bool   `json:"schema_ready"`
	TotalConns    int32  `json:"total_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
	IdleConns     int32  `json:"idle_conns"`
	MaxConns      int32  `json:"max_conns"`
}

// DB represents the database connection pool.
type DB struct {
	pool   *pgxpool.Pool
	config *config.DatabaseConfig
	logger zerolog.Logger
}

// DBTX is the query surface repositories need. *DB, *pgxpool.Pool and
// pgxmock pools all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Compile-time check that *DB implements DBTX.
var _ DBTX = (*DB)(nil)

// New connects to the small paper database and verifies the connection.
func New(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	poolConfig.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("database connection pool established")

	return &DB{
		pool:   pool,
		config: cfg,
		logger: logger,
	}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
		db.logger.Info().Msg("database connection pool closed")
	}
}

// Health pings the database and checks that the small_papers table exists.
// Status is "healthy" only when both succeed.
func (db *DB) Health(ctx context.Context) HealthStatus {
	stat := db.pool.Stat()
	health := HealthStatus{
		Status:        "unhealthy",
		TotalConns:    stat.TotalConns(),
		AcquiredConns: stat.AcquiredConns(),
		IdleConns:     stat.IdleConns(),
		MaxConns:      stat.MaxConns(),
	}

	checkCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	if err := db.pool.Ping(checkCtx); err != nil {
		health.Error = err.Error()
		return health
	}
	if err := checkSchema(checkCtx, db); err != nil {
		health.Error = err.Error()
		return health
	}
	health.SchemaReady = true
	health.Status = "healthy"
	return health
}

// ErrSchemaMissing reports a reachable database that has not been migrated.
var ErrSchemaMissing = errors.New(SchemaTable + " table missing; run migrations")

const schemaQuery = `SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_schema = current_schema() AND table_name = $1
)`

// checkSchema returns ErrSchemaMissing unless SchemaTable exists in the
// connection's current schema.
func checkSchema(ctx context.Context, q DBTX) error {
	var exists bool
	if err := q.QueryRow(ctx, schemaQuery, SchemaTable).Scan(&exists); err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	if !exists {
		return ErrSchemaMissing
	}
	return nil
}

// Exec executes a query without returning any rows.
// This method implements the DBTX interface.
func (db *DB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return db.pool.Exec(ctx, sql, args...)
}

// QueryRow executes a query that is expected to return at most one row.
// This method implements the DBTX interface.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

// Query executes a query that returns rows.
// This method implements the DBTX interface.
func (db *DB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}
