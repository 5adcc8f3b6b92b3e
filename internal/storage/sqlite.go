package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

// SQLiteFile is the database file name inside the index directory.
const SQLiteFile = "index.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS units (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	filename    TEXT NOT NULL,
	page        INTEGER NOT NULL CHECK (page >= 1),
	paragraph   INTEGER NOT NULL CHECK (paragraph >= 1),
	text        TEXT NOT NULL,
	embedding   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_units_document ON units(document_id);
`

// SQLiteStorage is an embedded, on-disk vector store. Similarity is computed
// by brute force over the units of the searched document, which is adequate
// for per-document retrieval.
type SQLiteStorage struct {
	db        *sql.DB
	path      string
	dimension int
}

// NewSQLiteStorage opens (creating if needed) the index database under dir.
// A dimension of 0 disables embedding size validation.
func NewSQLiteStorage(dir string, dimension int) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	path := filepath.Join(dir, SQLiteFile)

	// Pragmas go in the DSN so every pooled connection gets them.
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(10000)")
	q.Add("_pragma", "synchronous(NORMAL)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: path, dimension: dimension}, nil
}

// Path returns the database file location.
func (s *SQLiteStorage) Path() string { return s.path }

// Health pings the database.
func (s *SQLiteStorage) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Upsert writes units in one transaction. Conflicting ids are updated in
// place, which keeps their original scan position.
func (s *SQLiteStorage) Upsert(ctx context.Context, units []*Unit) error {
	if len(units) == 0 {
		return nil
	}
	for i, u := range units {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		if s.dimension > 0 && len(u.Embedding) != s.dimension {
			return fmt.Errorf("%w: unit %s has %d dimensions, expected %d",
				ErrDimensionMismatch, u.ID, len(u.Embedding), s.dimension)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO units (id, document_id, filename, page, paragraph, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			filename    = excluded.filename,
			page        = excluded.page,
			paragraph   = excluded.paragraph,
			text        = excluded.text,
			embedding   = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, u := range units {
		if _, err := stmt.ExecContext(ctx, u.ID, u.DocumentID, u.Filename, u.Page, u.Paragraph, u.Text, encodeVector(u.Embedding)); err != nil {
			return fmt.Errorf("upsert %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Search scores every unit of documentID against vector. Ties keep rowid order.
func (s *SQLiteStorage) Search(ctx context.Context, vector []float32, limit int, documentID string) ([]*ScoredUnit, error) {
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT id, document_id, filename, page, paragraph, text, embedding FROM units`
	var args []any
	if documentID != "" {
		query += ` WHERE document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search units: %w", err)
	}
	defer rows.Close()

	var scored []*ScoredUnit
	for rows.Next() {
		var (
			u    Unit
			blob []byte
		)
		if err := rows.Scan(&u.ID, &u.DocumentID, &u.Filename, &u.Page, &u.Paragraph, &u.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		scored = append(scored, &ScoredUnit{Unit: &u, Score: cosine(vector, decodeVector(blob))})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search units: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// ListMetadata returns unit metadata in insertion order.
func (s *SQLiteStorage) ListMetadata(ctx context.Context, documentID string) ([]Metadata, error) {
	query := `SELECT document_id, filename, page, paragraph FROM units`
	var args []any
	if documentID != "" {
		query += ` WHERE document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var metas []Metadata
	for rows.Next() {
		var m Metadata
		if err := rows.Scan(&m.DocumentID, &m.Filename, &m.Page, &m.Paragraph); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// CountUnits returns the number of units stored for documentID.
func (s *SQLiteStorage) CountUnits(ctx context.Context, documentID string) (int, error) {
	var n int
	var err error
	if documentID == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units WHERE document_id = ?`, documentID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count units: %w", err)
	}
	return n, nil
}
