package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soundprediction/predicato/pkg/errs"
)

// Status is the indexing lifecycle state of one file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusIndexed    Status = "indexed"
	StatusFailed     Status = "failed"
)

// IndexStatus is one row of the index_status table.
type IndexStatus struct {
	FilePath     string
	FileHash     string
	Status       Status
	IndexedAt    *time.Time
	ErrorMessage *string
	FileSize     int64
	LastModified time.Time
}

// updatableFields whitelists the columns UpdateField may target, preventing
// a caller-controlled column name from ever reaching the query string.
var updatableFields = map[string]bool{
	"status":        true,
	"error_message": true,
	"indexed_at":    true,
	"file_hash":     true,
}

// Catalog is a SQLite-backed index-status store. Each method opens its own
// connection: the schema is small and short-lived connections under WAL
// journaling tolerate concurrent readers/writers without a long-held lock.
type Catalog struct {
	path string
}

// New opens (creating if necessary) the catalog database at path and
// ensures its schema exists.
func New(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	db, err := c.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS index_status (
			file_path     TEXT PRIMARY KEY,
			file_hash     TEXT NOT NULL,
			status        TEXT NOT NULL,
			indexed_at    TEXT,
			error_message TEXT,
			file_size     INTEGER NOT NULL,
			last_modified TEXT NOT NULL
		)
	`); err != nil {
		return nil, errs.NewIntegrityError("create index_status schema", err)
	}
	return c, nil
}

func (c *Catalog) open() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", c.path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.NewIntegrityError("open catalog database", err)
	}
	return db, nil
}

// Upsert inserts or fully replaces status, matching INSERT OR REPLACE
// semantics: upserting the same record twice is equivalent to once.
func (c *Catalog) Upsert(ctx context.Context, status IndexStatus) error {
	db, err := c.open()
	if err != nil {
		return err
	}
	defer db.Close()

	var indexedAt any
	if status.IndexedAt != nil {
		indexedAt = status.IndexedAt.UTC().Format(time.RFC3339Nano)
	}
	var errMsg any
	if status.ErrorMessage != nil {
		errMsg = *status.ErrorMessage
	}

	_, err = db.ExecContext(ctx, `
		INSERT OR REPLACE INTO index_status
			(file_path, file_hash, status, indexed_at, error_message, file_size, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, status.FilePath, status.FileHash, string(status.Status), indexedAt, errMsg,
		status.FileSize, status.LastModified.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errs.NewIntegrityError(fmt.Sprintf("upsert index status for %q", status.FilePath), err)
	}
	return nil
}

// UpdateField atomically sets one whitelisted column for a file's row.
func (c *Catalog) UpdateField(ctx context.Context, filePath, field string, value any) error {
	if !updatableFields[field] {
		return errs.NewInvalidError("invalid index_status field %q", field)
	}

	db, err := c.open()
	if err != nil {
		return err
	}
	defer db.Close()

	query := fmt.Sprintf("UPDATE index_status SET %s = ? WHERE file_path = ?", field)
	if _, err := db.ExecContext(ctx, query, value, filePath); err != nil {
		return errs.NewIntegrityError(fmt.Sprintf("update %s for %q", field, filePath), err)
	}
	return nil
}

// Get returns the status for filePath, or a NotFoundError if no row exists.
func (c *Catalog) Get(ctx context.Context, filePath string) (*IndexStatus, error) {
	db, err := c.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	row := db.QueryRowContext(ctx, "SELECT file_path, file_hash, status, indexed_at, error_message, file_size, last_modified FROM index_status WHERE file_path = ?", filePath)
	status, err := scanStatus(row)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFoundError("index status for %q", filePath)
	}
	if err != nil {
		return nil, errs.NewIntegrityError(fmt.Sprintf("get index status for %q", filePath), err)
	}
	return status, nil
}

// List returns every row ordered by last_modified descending.
func (c *Catalog) List(ctx context.Context) ([]IndexStatus, error) {
	db, err := c.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT file_path, file_hash, status, indexed_at, error_message, file_size, last_modified FROM index_status ORDER BY last_modified DESC")
	if err != nil {
		return nil, errs.NewIntegrityError("list index status", err)
	}
	defer rows.Close()

	var out []IndexStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, errs.NewIntegrityError("scan index status row", err)
		}
		out = append(out, *status)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewIntegrityError("iterate index status rows", err)
	}
	return out, nil
}

// Delete removes the row for filePath. Deleting a nonexistent row is a
// no-op, matching the idempotent DELETE FROM semantics of the reference.
func (c *Catalog) Delete(ctx context.Context, filePath string) error {
	db, err := c.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "DELETE FROM index_status WHERE file_path = ?", filePath); err != nil {
		return errs.NewIntegrityError(fmt.Sprintf("delete index status for %q", filePath), err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows so scanStatus serves both
// Get and List.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (*IndexStatus, error) {
	var (
		s                       IndexStatus
		statusStr               string
		indexedAt, errorMessage sql.NullString
		lastModified            string
	)
	if err := row.Scan(&s.FilePath, &s.FileHash, &statusStr, &indexedAt, &errorMessage, &s.FileSize, &lastModified); err != nil {
		return nil, err
	}
	s.Status = Status(statusStr)

	if indexedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, indexedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse indexed_at: %w", err)
		}
		s.IndexedAt = &t
	}
	if errorMessage.Valid {
		msg := errorMessage.String
		s.ErrorMessage = &msg
	}

	t, err := time.Parse(time.RFC3339Nano, lastModified)
	if err != nil {
		return nil, fmt.Errorf("parse last_modified: %w", err)
	}
	s.LastModified = t

	return &s, nil
}
