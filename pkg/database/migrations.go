package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/cache"
)

// versionLayout is the migration version format. golang-migrate orders
// versions numerically, so timestamps keep successive runs in order.
const versionLayout = "20060102150405"

var migrationNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// MigrationFiles names one written up/down pair.
type MigrationFiles struct {
	Version uint64
	Up      string
	Down    string
}

// WriteMigration writes <version>_<name>.up.sql and .down.sql into dir.
// Both files are written atomically; an existing pair with the same version
// is an error.
func WriteMigration(dir string, at time.Time, name string, up, down []byte) (*MigrationFiles, error) {
	if len(up) == 0 {
		return nil, fmt.Errorf("empty up migration")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations dir: %w", err)
	}

	stamp := at.UTC().Format(versionLayout)
	var version uint64
	if _, err := fmt.Sscan(stamp, &version); err != nil {
		return nil, fmt.Errorf("invalid migration version %q: %w", stamp, err)
	}

	base := stamp + "_" + migrationName(name)
	files := &MigrationFiles{
		Version: version,
		Up:      filepath.Join(dir, base+".up.sql"),
		Down:    filepath.Join(dir, base+".down.sql"),
	}
	for _, path := range []string{files.Up, files.Down} {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("migration %s already exists", filepath.Base(path))
		}
	}

	if err := cache.WriteFileAtomic(files.Up, up, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write up migration: %w", err)
	}
	if err := cache.WriteFileAtomic(files.Down, down, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write down migration: %w", err)
	}
	return files, nil
}

func migrationName(name string) string {
	n := strings.Trim(migrationNameChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if n == "" {
		return "schema"
	}
	return n
}

// RunMigrations executes pending database migrations from the specified directory.
// It is idempotent and safe to call multiple times - only pending migrations will be executed.
func RunMigrations(db *sql.DB, migrationsPath string, logger *zap.Logger) error {
	m, err := newMigrate(db, migrationsPath)
	if err != nil {
		return err
	}
	defer closeMigrate(m, logger)

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Info("Applied migrations successfully", zap.Uint("version", newVersion))
	return nil
}

// RollbackMigration reverts the most recently applied migration.
func RollbackMigration(db *sql.DB, migrationsPath string, logger *zap.Logger) error {
	m, err := newMigrate(db, migrationsPath)
	if err != nil {
		return err
	}
	defer closeMigrate(m, logger)

	if err := m.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNilVersion) || errors.Is(err, os.ErrNotExist) {
			logger.Info("No migration to roll back")
			return nil
		}
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("Rolled back to empty database")
		return nil
	}
	logger.Info("Rolled back migration", zap.Uint("version", version))
	return nil
}

func newMigrate(db *sql.DB, migrationsPath string) (*migrate.Migrate, error) {
	abs, err := filepath.Abs(migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", abs), "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate, logger *zap.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("Failed to close migration source", zap.Error(srcErr))
	}
	if dbErr != nil {
		logger.Warn("Failed to close migration database", zap.Error(dbErr))
	}
}
