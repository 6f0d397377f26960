package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/panoptikon-app/panoptikon/internal/pathfs"
	"github.com/panoptikon-app/panoptikon/internal/perror"
)

// Write retry policy: exponential backoff starting at writeRetryBase,
// capped at writeRetryCap per attempt, up to writeRetryAttempts tries
// before a batch is declared Catalog.Degraded, pausing the indexer but
// not the query engine.
const (
	writeRetryBase     = 25 * time.Millisecond
	writeRetryCap      = 2 * time.Second
	writeRetryAttempts = 5
)

const sqlUpsertFile = `INSERT INTO files
	(path, name, name_nocase, extension, parent_id, size, folder_size,
	 created_at, modified_at, is_directory, cloud_provider, cloud_status,
	 inode, device, version, stale)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	ON CONFLICT(path) DO UPDATE SET
	 name = excluded.name,
	 name_nocase = excluded.name_nocase,
	 extension = excluded.extension,
	 parent_id = excluded.parent_id,
	 size = excluded.size,
	 folder_size = excluded.folder_size,
	 modified_at = excluded.modified_at,
	 is_directory = excluded.is_directory,
	 cloud_provider = excluded.cloud_provider,
	 cloud_status = excluded.cloud_status,
	 inode = excluded.inode,
	 device = excluded.device,
	 version = files.version + 1,
	 stale = excluded.stale`

const sqlSelectFileColumns = `id, path, name, extension, parent_id, size,
	folder_size, created_at, modified_at, is_directory, cloud_provider,
	cloud_status, inode, device, version, stale FROM files`

// Store provides the CRUD surface the indexer and query engine use over a
// Pool. Writes go through Writer(); reads go through Reader().
type Store struct {
	pool *Pool
}

// NewStore wraps a Pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// UpsertBatch writes records in one transaction, retrying a transient
// failure with exponential backoff (writeRetryBase..writeRetryCap, up to
// writeRetryAttempts tries). When every retry is exhausted (and the
// caller's own ctx did not cancel the wait), the batch is reported as
// Catalog.Degraded rather than Catalog.Transient, the signal
// internal/indexer's pipeline uses to pause further indexing.
func (s *Store) UpsertBatch(ctx context.Context, records []FileRecord) error {
	backoff := retry.NewExponential(writeRetryBase)

	// WithMaxRetries counts retries after the first attempt.
	backoff = retry.WithMaxRetries(writeRetryAttempts-1, retry.WithCappedDuration(writeRetryCap, backoff))

	retryErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.upsertBatchOnce(ctx, records); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
	if retryErr == nil {
		return nil
	}

	if ctx.Err() != nil {
		// The caller's own context was canceled mid-retry; surface the
		// last attempt's error as-is rather than declaring the catalog
		// degraded over a cancellation that had nothing to do with it.
		return retryErr
	}

	return perror.New(perror.CategoryCatalogDegraded, "catalog.UpsertBatch", "",
		fmt.Sprintf("write failed after %d attempts", writeRetryAttempts), retryErr)
}

// upsertBatchOnce performs one attempt of the batch upsert transaction.
func (s *Store) upsertBatchOnce(ctx context.Context, records []FileRecord) error {
	tx, err := s.pool.Writer().BeginTx(ctx, nil)
	if err != nil {
		return perror.New(perror.CategoryCatalogTransient, "catalog.UpsertBatch", "", "beginning transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqlUpsertFile)
	if err != nil {
		return perror.New(perror.CategoryCatalogTransient, "catalog.UpsertBatch", "", "preparing upsert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Path, r.Name, pathfs.Normalize(r.Name), r.Extension,
			nullInt(r.ParentID, r.HasParent),
			nullInt(r.Size, r.HasSize),
			nullInt(r.FolderSize, r.HasFolderSize),
			r.CreatedAt, r.ModifiedAt, r.IsDirectory,
			string(r.CloudProvider), string(r.CloudStatus),
			r.Fingerprint.Inode, r.Fingerprint.Device, r.Stale,
		); err != nil {
			return perror.New(perror.CategoryCatalogTransient, "catalog.UpsertBatch",
				"", fmt.Sprintf("upserting %s", r.Path), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return perror.New(perror.CategoryCatalogTransient, "catalog.UpsertBatch", "", "committing transaction", err)
	}

	return nil
}

// GetByPath looks up a file by its canonical path.
func (s *Store) GetByPath(ctx context.Context, path string) (*FileRecord, error) {
	row := s.pool.Reader().QueryRowContext(ctx,
		"SELECT "+sqlSelectFileColumns+" WHERE path = ?", path)

	return scanFileRow(row)
}

// GetByID looks up a file by its catalog row id.
func (s *Store) GetByID(ctx context.Context, id int64) (*FileRecord, error) {
	row := s.pool.Reader().QueryRowContext(ctx,
		"SELECT "+sqlSelectFileColumns+" WHERE id = ?", id)

	return scanFileRow(row)
}

// GetByFingerprint looks up a file by (inode, device), used by the writer
// stage to detect renames instead of delete+create.
func (s *Store) GetByFingerprint(ctx context.Context, fp Fingerprint) (*FileRecord, error) {
	row := s.pool.Reader().QueryRowContext(ctx,
		"SELECT "+sqlSelectFileColumns+" WHERE inode = ? AND device = ? AND (inode != 0 OR device != 0)",
		fp.Inode, fp.Device)

	return scanFileRow(row)
}

// ListRootChildren returns every record with no parent (a record's
// parent is either another record or a declared root), used
// by the indexer's deletion reconciliation pass to find each configured
// root's own direct children.
func (s *Store) ListRootChildren(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.pool.Reader().QueryContext(ctx,
		"SELECT "+sqlSelectFileColumns+" WHERE parent_id IS NULL ORDER BY path")
	if err != nil {
		return nil, perror.New(perror.CategoryCatalogTransient, "catalog.ListRootChildren", "", "querying root children", err)
	}
	defer rows.Close()

	return scanFileRows(rows)
}

// ListChildren returns the immediate children of parentID.
func (s *Store) ListChildren(ctx context.Context, parentID int64) ([]FileRecord, error) {
	rows, err := s.pool.Reader().QueryContext(ctx,
		"SELECT "+sqlSelectFileColumns+" WHERE parent_id = ? ORDER BY name", parentID)
	if err != nil {
		return nil, perror.New(perror.CategoryCatalogTransient, "catalog.ListChildren", "", "querying children", err)
	}
	defer rows.Close()

	return scanFileRows(rows)
}

// Delete removes a file record by path.
func (s *Store) Delete(ctx context.Context, path string) error {
	_, err := s.pool.Writer().ExecContext(ctx, "DELETE FROM files WHERE path = ?", path)
	if err != nil {
		return perror.New(perror.CategoryCatalogTransient, "catalog.Delete", "", "deleting "+path, err)
	}

	return nil
}

// Rename updates a file's path in place, preserving its id (invariant
// 3.2.5: renames update path without changing id).
func (s *Store) Rename(ctx context.Context, id int64, newPath, newName string) error {
	_, err := s.pool.Writer().ExecContext(ctx,
		"UPDATE files SET path = ?, name = ?, name_nocase = ?, version = version + 1 WHERE id = ?",
		newPath, newName, pathfs.Normalize(newName), id)
	if err != nil {
		return perror.New(perror.CategoryCatalogTransient, "catalog.Rename", "", "renaming file", err)
	}

	return nil
}

// SetFolderSize updates a directory's recursive byte sum, clearing its
// stale bit (part of the rollup stage's dirty-set flush).
func (s *Store) SetFolderSize(ctx context.Context, id, size int64) error {
	_, err := s.pool.Writer().ExecContext(ctx,
		"UPDATE files SET folder_size = ?, stale = 0 WHERE id = ?", size, id)
	if err != nil {
		return perror.New(perror.CategoryCatalogTransient, "catalog.SetFolderSize", "", "updating folder_size", err)
	}

	return nil
}

// BeginIndexRun inserts a new append-only index_runs row and returns its id.
func (s *Store) BeginIndexRun(ctx context.Context, startedAt int64) (int64, error) {
	res, err := s.pool.Writer().ExecContext(ctx,
		"INSERT INTO index_runs (started_at, cursor) VALUES (?, '')", startedAt)
	if err != nil {
		return 0, perror.New(perror.CategoryCatalogTransient, "catalog.BeginIndexRun", "", "inserting index_runs row", err)
	}

	return res.LastInsertId()
}

// CheckpointIndexRun persists a resume cursor and running counts for a
// batch commit.
func (s *Store) CheckpointIndexRun(ctx context.Context, runID int64, cursor string, added, modified, deleted int64) error {
	_, err := s.pool.Writer().ExecContext(ctx,
		`UPDATE index_runs SET cursor = ?, added = added + ?, modified = modified + ?,
		 deleted = deleted + ? WHERE id = ?`,
		cursor, added, modified, deleted, runID)
	if err != nil {
		return perror.New(perror.CategoryCatalogTransient, "catalog.CheckpointIndexRun", "", "checkpointing index run", err)
	}

	return nil
}

// FinishIndexRun marks an index run complete.
func (s *Store) FinishIndexRun(ctx context.Context, runID, finishedAt int64) error {
	_, err := s.pool.Writer().ExecContext(ctx,
		"UPDATE index_runs SET finished_at = ? WHERE id = ?", finishedAt, runID)
	if err != nil {
		return perror.New(perror.CategoryCatalogTransient, "catalog.FinishIndexRun", "", "finishing index run", err)
	}

	return nil
}

// LoadResumableRun returns the most recent unfinished index run, or nil if
// none exists; only the most recent unfinished run is resumable.
func (s *Store) LoadResumableRun(ctx context.Context) (*IndexRun, error) {
	row := s.pool.Reader().QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, added, modified, deleted, cursor
		 FROM index_runs WHERE finished_at IS NULL ORDER BY id DESC LIMIT 1`)

	var (
		run      IndexRun
		finished sql.NullInt64
	)

	err := row.Scan(&run.ID, &run.StartedAt, &finished, &run.Added, &run.Modified, &run.Deleted, &run.Cursor)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, perror.New(perror.CategoryCatalogTransient, "catalog.LoadResumableRun", "", "loading resumable run", err)
	}

	if finished.Valid {
		run.FinishedAt = finished.Int64
		run.HasFinish = true
	}

	return &run, nil
}

// GetSetting reads one persisted preference, or "" if unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string

	err := s.pool.Reader().QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}

	if err != nil {
		return "", perror.New(perror.CategoryCatalogTransient, "catalog.GetSetting", "", "reading setting "+key, err)
	}

	return value, nil
}

// SetSetting persists one preference.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Writer().ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return perror.New(perror.CategoryCatalogTransient, "catalog.SetSetting", "", "writing setting "+key, err)
	}

	return nil
}

// Snapshot is a held read transaction over the reader pool, giving every
// page fetched through it a consistent view of the table even as
// concurrent writes commit (SQLite's default deferred BEGIN isolates a
// reader from writer commits until the transaction ends). The query
// engine pages through it with O(pages) memory rather than O(rows).
type Snapshot struct {
	tx *sql.Tx
}

// BeginSnapshot opens a read-only transaction a ResultSet can page
// through.
func (s *Store) BeginSnapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.pool.Reader().BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, perror.New(perror.CategoryCatalogTransient, "catalog.BeginSnapshot", "", "beginning read snapshot", err)
	}

	return &Snapshot{tx: tx}, nil
}

// QueryFiles runs a planner-compiled WHERE fragment (see internal/query)
// against this snapshot, paged by limit/offset and ordered by orderBy (a
// trusted, caller-built column list — never user input directly).
func (snap *Snapshot) QueryFiles(ctx context.Context, where string, args []any, orderBy string, limit, offset int) ([]FileRecord, error) {
	query := "SELECT " + sqlSelectFileColumns

	if where != "" {
		query += " WHERE " + where
	}

	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}

	query += " LIMIT ? OFFSET ?"

	boundArgs := make([]any, 0, len(args)+2)
	boundArgs = append(boundArgs, args...)
	boundArgs = append(boundArgs, limit, offset)

	rows, err := snap.tx.QueryContext(ctx, query, boundArgs...)
	if err != nil {
		return nil, perror.New(perror.CategoryQueryPlan, "catalog.QueryFiles", "", "querying files", err)
	}

	return scanFileRows(rows)
}

// CountFiles returns the total row count a WHERE fragment would match,
// used by ResultSet to report a page's total without fetching every row.
func (snap *Snapshot) CountFiles(ctx context.Context, where string, args []any) (int64, error) {
	query := "SELECT COUNT(*) FROM files"
	if where != "" {
		query += " WHERE " + where
	}

	var n int64

	if err := snap.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, perror.New(perror.CategoryQueryPlan, "catalog.CountFiles", "", "counting files", err)
	}

	return n, nil
}

// Close ends the snapshot transaction, releasing its reader-pool
// connection back to the pool.
func (snap *Snapshot) Close() error {
	return snap.tx.Rollback()
}

func scanFileRow(row *sql.Row) (*FileRecord, error) {
	var (
		r        FileRecord
		parentID sql.NullInt64
		size     sql.NullInt64
		fsize    sql.NullInt64
	)

	err := row.Scan(&r.ID, &r.Path, &r.Name, &r.Extension, &parentID, &size, &fsize,
		&r.CreatedAt, &r.ModifiedAt, &r.IsDirectory,
		&r.CloudProvider, &r.CloudStatus, &r.Fingerprint.Inode, &r.Fingerprint.Device,
		&r.Version, &r.Stale)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, err
	}

	applyNullableFileFields(&r, parentID, size, fsize)

	return &r, nil
}

func scanFileRows(rows *sql.Rows) ([]FileRecord, error) {
	defer rows.Close()

	var out []FileRecord

	for rows.Next() {
		var (
			r        FileRecord
			parentID sql.NullInt64
			size     sql.NullInt64
			fsize    sql.NullInt64
		)

		if err := rows.Scan(&r.ID, &r.Path, &r.Name, &r.Extension, &parentID, &size, &fsize,
			&r.CreatedAt, &r.ModifiedAt, &r.IsDirectory,
			&r.CloudProvider, &r.CloudStatus, &r.Fingerprint.Inode, &r.Fingerprint.Device,
			&r.Version, &r.Stale); err != nil {
			return nil, err
		}

		applyNullableFileFields(&r, parentID, size, fsize)
		out = append(out, r)
	}

	return out, rows.Err()
}

func applyNullableFileFields(r *FileRecord, parentID, size, fsize sql.NullInt64) {
	if parentID.Valid {
		r.ParentID = parentID.Int64
		r.HasParent = true
	}

	if size.Valid {
		r.Size = size.Int64
		r.HasSize = true
	}

	if fsize.Valid {
		r.FolderSize = fsize.Int64
		r.HasFolderSize = true
	}
}

func nullInt(v int64, has bool) sql.NullInt64 {
	if !has {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: v, Valid: true}
}
