package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// documentColumns is the ordered list of columns selected in document
// queries. Must match the scan order in scanDocument.
const documentColumns = `id, name, path, date_added, last_opened, missing`

// scanDocument scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Document.
func scanDocument(scanner interface{ Scan(dest ...any) error }) (*domain.Document, error) {
	var d domain.Document

	var (
		dateAdded  string
		lastOpened string
		missing    int
	)

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&d.Path,
		&dateAdded,
		&lastOpened,
		&missing,
	)
	if err != nil {
		return nil, err
	}

	d.DateAdded, err = parseTime(dateAdded)
	if err != nil {
		return nil, err
	}
	d.LastOpened, err = parseTime(lastOpened)
	if err != nil {
		return nil, err
	}
	d.Missing = missing != 0

	return &d, nil
}

// RegisterDocument returns the document for path, creating it on first open.
// A known path gets last_opened bumped and the missing flag cleared; the rest
// of the row is returned unchanged.
func (s *Store) RegisterDocument(ctx context.Context, name, path string) (*domain.Document, error) {
	now := time.Now()

	existing, err := s.getDocumentByPath(ctx, path)
	if err == nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE documents SET last_opened = ?, missing = 0 WHERE id = ?`,
			formatTime(now), existing.ID)
		if err != nil {
			return nil, fmt.Errorf("bump last_opened: %w", err)
		}
		existing.LastOpened = now.UTC()
		existing.Missing = false
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (name, path, date_added, last_opened, missing)
		VALUES (?, ?, ?, ?, 0)`,
		name, path, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	docID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("document insert id: %w", err)
	}

	s.logger.Info("document registered", "document_id", docID, "path", path)

	return &domain.Document{
		ID:         docID,
		Name:       name,
		Path:       path,
		DateAdded:  now.UTC(),
		LastOpened: now.UTC(),
	}, nil
}

// GetDocument retrieves a document by its ID.
// Returns store.ErrNotFound if the document does not exist.
func (s *Store) GetDocument(ctx context.Context, documentID int64) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, documentID)

	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// getDocumentByPath retrieves a document by its unique path.
func (s *Store) getDocumentByPath(ctx context.Context, path string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE path = ?`, path)

	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns the library ordered by last_opened, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY last_opened DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*domain.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// DeleteDocument removes the document together with its highlights and their
// tag links. The cleanup is explicit rather than relying on cascade, so a
// partially configured database can never leave dangling links.
func (s *Store) DeleteDocument(ctx context.Context, documentID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE id = ?`, documentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check document: %w", err)
	}
	if exists == 0 {
		return store.ErrNotFound.WithMessage(fmt.Sprintf("document %d not found", documentID))
	}

	// Links first, then highlights, then the document row.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM highlight_tags WHERE highlight_id IN
			(SELECT highlight_id FROM highlights WHERE document_id = ?)`,
		documentID)
	if err != nil {
		return fmt.Errorf("delete highlight links: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM highlights WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete highlights: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("document deleted", "document_id", documentID)
	return nil
}

// SetDocumentMissing flags or unflags the document at path as missing from
// disk. Unknown paths are a no-op.
func (s *Store) SetDocumentMissing(ctx context.Context, path string, missing bool) error {
	flag := 0
	if missing {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET missing = ? WHERE path = ?`, flag, path)
	if err != nil {
		return fmt.Errorf("set missing flag: %w", err)
	}
	return nil
}
