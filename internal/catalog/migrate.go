package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/panoptikon-app/panoptikon/internal/perror"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLock serializes migration runs within this process only; a
// migration started by another process is not excluded.
var migrationLock sync.Mutex

// Migrate applies all pending schema migrations to db, first copying the
// database file to catalog/backups/<timestamp>.db and, after Up()
// succeeds, running a verification query before recording the applied
// version in the settings table. On verification failure the backup is
// restored and CategoryMigrationVerifyFailed is returned.
func Migrate(ctx context.Context, db *sql.DB, dbPath string, logger *slog.Logger) error {
	migrationLock.Lock()
	defer migrationLock.Unlock()

	backupPath, err := backupBeforeMigrate(dbPath, logger)
	if err != nil {
		return perror.New(perror.CategoryMigrationLocked, "catalog.Migrate", "", "creating pre-migration backup", err)
	}

	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return perror.New(perror.CategoryMigrationVerifyFailed, "catalog.Migrate", "", "creating migration sub-filesystem", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return perror.New(perror.CategoryMigrationVerifyFailed, "catalog.Migrate", "", "creating migration provider", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		restoreBackup(dbPath, backupPath, logger)

		return perror.New(perror.CategoryMigrationVerifyFailed, "catalog.Migrate", "", "running migrations", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			"source", r.Source.Path, "duration_ms", r.Duration.Milliseconds())
	}

	if err := verifyMigration(ctx, db); err != nil {
		restoreBackup(dbPath, backupPath, logger)

		return perror.New(perror.CategoryMigrationVerifyFailed, "catalog.Migrate", "", "post-migration verification failed", err)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return perror.New(perror.CategoryMigrationVerifyFailed, "catalog.Migrate", "", "reading applied schema version", err)
	}

	if err := recordSchemaVersion(ctx, db, version); err != nil {
		return perror.New(perror.CategoryMigrationVerifyFailed, "catalog.Migrate", "", "recording schema version", err)
	}

	return nil
}

// backupBeforeMigrate copies the database file to catalog/backups/<unix
// timestamp>.db, returning the backup path. If dbPath does not yet exist
// (first run), no backup is taken and an empty path is returned.
func backupBeforeMigrate(dbPath string, logger *slog.Logger) (string, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return "", nil
	}

	backupDir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	backupPath := filepath.Join(backupDir, fmt.Sprintf("%d.db", time.Now().UnixNano()))

	data, err := os.ReadFile(dbPath)
	if err != nil {
		return "", fmt.Errorf("reading database for backup: %w", err)
	}

	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", backupPath, err)
	}

	logger.Info("pre-migration backup created", "backup_path", backupPath)

	return backupPath, nil
}

// restoreBackup copies backupPath back over dbPath. Errors are logged, not
// returned, since the caller already has a migration error to report and
// restore is a best-effort safety net.
func restoreBackup(dbPath, backupPath string, logger *slog.Logger) {
	if backupPath == "" {
		return
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		logger.Error("restore: reading backup failed", "backup_path", backupPath, "error", err)

		return
	}

	if err := os.WriteFile(dbPath, data, 0o644); err != nil {
		logger.Error("restore: writing database failed", "db_path", dbPath, "error", err)

		return
	}

	logger.Warn("database restored from pre-migration backup", "backup_path", backupPath)
}

// verifyMigration runs a cheap sanity query against the migrated schema.
func verifyMigration(ctx context.Context, db *sql.DB) error {
	var count int

	return db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&count)
}

// recordSchemaVersion upserts the singleton settings-table row tracking
// the applied schema version, kept alongside goose's own internal
// version-tracking table so a reader never needs goose's API just to
// report its schema version.
func recordSchemaVersion(ctx context.Context, db *sql.DB, version int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprintf("%d", version))

	return err
}
