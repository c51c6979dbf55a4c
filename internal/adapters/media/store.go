// Package media stores the site's attachments in SQLite and serves the
// attachment URL endpoint used by the SVG media library integration.
package media

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS attachments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_attachments_url ON attachments(url);
`

var (
	_ ports.AttachmentStore       = (*Store)(nil)
	_ ports.AttachmentStoreOpener = (*Opener)(nil)
)

// Opener opens SQLite attachment databases.
type Opener struct{}

// NewOpener creates an Opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open creates the database and its parent directory when missing.
func (o *Opener) Open(ctx context.Context, path string) (ports.AttachmentStore, error) {
	return Open(ctx, path)
}

// Store is an AttachmentStore backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the attachment database at path. ":memory:" opens a private
// in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
			return nil, zerr.With(domain.Caused(domain.ErrAttachmentStoreFailed, err), "path", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, zerr.With(domain.Caused(domain.ErrAttachmentStoreFailed, err), "path", path)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, zerr.With(domain.Caused(domain.ErrAttachmentStoreFailed, err), "path", path)
	}
	return &Store{db: db}, nil
}

// Get returns the attachment with the given id, or nil, nil when absent.
func (s *Store) Get(ctx context.Context, id int64) (*domain.Attachment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, mime_type, title FROM attachments WHERE id = ?`, id)

	var a domain.Attachment
	if err := row.Scan(&a.ID, &a.URL, &a.MimeType, &a.Title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, zerr.With(domain.Caused(domain.ErrAttachmentStoreFailed, err), "id", id)
	}
	return &a, nil
}

// Add stores the attachment and returns its id. a.ID is ignored.
func (s *Store) Add(ctx context.Context, a domain.Attachment) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attachments (url, mime_type, title) VALUES (?, ?, ?)`,
		a.URL, a.MimeType, a.Title)
	if err != nil {
		return 0, zerr.With(domain.Caused(domain.ErrAttachmentStoreFailed, err), "url", a.URL)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.Caused(domain.ErrAttachmentStoreFailed, err)
	}
	return id, nil
}

// List returns every attachment ordered by id.
func (s *Store) List(ctx context.Context) ([]domain.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, url, mime_type, title FROM attachments ORDER BY id`)
	if err != nil {
		return nil, domain.Caused(domain.ErrAttachmentStoreFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.URL, &a.MimeType, &a.Title); err != nil {
			return nil, domain.Caused(domain.ErrAttachmentStoreFailed, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Caused(domain.ErrAttachmentStoreFailed, err)
	}
	return out, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
