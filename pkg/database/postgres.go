package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver used by golang-migrate
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/logging"
)

// DB wraps a pgxpool connection pool.
type DB struct {
	*pgxpool.Pool
}

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewConnection creates a new database connection pool.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 4
	}

	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime == 0 {
		poolConfig.MaxConnLifetime = time.Hour
	}

	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	if poolConfig.MaxConnIdleTime == 0 {
		poolConfig.MaxConnIdleTime = time.Minute * 30
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %s", logging.SanitizeError(err))
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// ListTables returns the base tables of the public schema in name order.
func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	rows, err := db.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		  AND table_name <> 'schema_migrations'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// OpenSQL opens a database/sql handle over the pgx driver, which
// golang-migrate requires, and verifies the connection.
func OpenSQL(ctx context.Context, connStr string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %s", logging.SanitizeError(err))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %s", logging.SanitizeError(err))
	}
	logger.Debug("Connected to database", zap.String("dsn", logging.SanitizeConnectionString(connStr)))
	return db, nil
}

// ApplySchema writes the up/down pair into cfg.MigrationsDir and migrates the
// configured database to it.
func ApplySchema(ctx context.Context, cfg *config.DatabaseConfig, name string, up, down []byte, logger *zap.Logger) (*MigrationFiles, error) {
	files, err := WriteMigration(cfg.MigrationsDir, time.Now(), name, up, down)
	if err != nil {
		return nil, err
	}
	logger.Info("Wrote migration",
		zap.Uint64("version", files.Version),
		zap.String("up", files.Up),
		zap.String("down", files.Down))

	db, err := OpenSQL(ctx, cfg.ConnectionString(), logger)
	if err != nil {
		return files, err
	}
	// RunMigrations closes db through the migrate driver.
	if err := RunMigrations(db, cfg.MigrationsDir, logger); err != nil {
		return files, errors.New(logging.SanitizeError(err))
	}
	return files, nil
}
