package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// highlightColumns is the ordered list of columns selected in highlight
// queries. Must match the scan order in scanHighlight.
const highlightColumns = `highlight_id, document_id, content_text, content_image,
	comment_text, comment_emoji, position_data, created_at`

// scanHighlight scans a row into a domain.Highlight, decoding the position
// JSON. page_number is denormalized from the position and not scanned.
func scanHighlight(scanner interface{ Scan(dest ...any) error }) (*domain.Highlight, error) {
	var h domain.Highlight

	var (
		contentText  sql.NullString
		contentImage sql.NullString
		commentText  sql.NullString
		commentEmoji sql.NullString
		positionData string
		createdAt    string
	)

	err := scanner.Scan(
		&h.ID,
		&h.DocumentID,
		&contentText,
		&contentImage,
		&commentText,
		&commentEmoji,
		&positionData,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	h.Content.Text = contentText.String
	h.Content.Image = contentImage.String
	h.Comment.Text = commentText.String
	h.Comment.Emoji = commentEmoji.String

	if err := json.Unmarshal([]byte(positionData), &h.Position); err != nil {
		return nil, fmt.Errorf("decode position for %s: %w", h.ID, err)
	}

	h.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &h, nil
}

// nullable returns a sql.NullString that is NULL for the empty string,
// matching the original schema where unset content/comment columns are NULL.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// CreateHighlight inserts a fully formed highlight. The ID must already be
// assigned (client-generated); the row either lands completely or not at all.
func (s *Store) CreateHighlight(ctx context.Context, h *domain.Highlight) error {
	if h.ID == "" {
		return store.ErrInvalidInput.WithMessage("highlight id is required")
	}

	positionData, err := json.Marshal(h.Position)
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}

	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO highlights (highlight_id, document_id, content_text, content_image,
			comment_text, comment_emoji, position_data, page_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID,
		h.DocumentID,
		nullable(h.Content.Text),
		nullable(h.Content.Image),
		nullable(h.Comment.Text),
		nullable(h.Comment.Emoji),
		string(positionData),
		h.Position.PageNumber,
		formatTime(h.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage(fmt.Sprintf("highlight %s already exists", h.ID))
		}
		return fmt.Errorf("insert highlight: %w", err)
	}

	return nil
}

// ListHighlights returns the document's highlights, newest first.
func (s *Store) ListHighlights(ctx context.Context, documentID int64) ([]*domain.Highlight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights
		 WHERE document_id = ?
		 ORDER BY created_at DESC, id DESC`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	highlights := []*domain.Highlight{}
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		highlights = append(highlights, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return highlights, nil
}

// GetHighlight retrieves a highlight by its client-generated ID.
// Returns store.ErrNotFound if the highlight does not exist.
func (s *Store) GetHighlight(ctx context.Context, highlightID string) (*domain.Highlight, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE highlight_id = ?`,
		highlightID)

	h, err := scanHighlight(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateHighlight reads the current row, merges the supplied patches over the
// stored position and content, and writes the merged whole back. Fields not
// present in a patch keep their stored values.
//
// An unknown highlightID is a silent no-op: a geometry update can race ahead
// of the creation write. It is logged at WARN so a genuinely lost update
// stays visible.
func (s *Store) UpdateHighlight(ctx context.Context, highlightID string, pos *domain.PositionPatch, content *domain.ContentPatch) error {
	h, err := s.GetHighlight(ctx, highlightID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("update for unknown highlight ignored", "highlight_id", highlightID)
		return nil
	}
	if err != nil {
		return err
	}

	if pos.IsEmpty() && content.IsEmpty() {
		s.logger.Debug("empty highlight update", "highlight_id", highlightID)
		return nil
	}

	merged := h.Position.Merge(pos)
	mergedContent := h.Content.Merge(content)

	positionData, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE highlights
		SET content_text = ?, content_image = ?, position_data = ?, page_number = ?
		WHERE highlight_id = ?`,
		nullable(mergedContent.Text),
		nullable(mergedContent.Image),
		string(positionData),
		merged.PageNumber,
		highlightID,
	)
	if err != nil {
		return fmt.Errorf("update highlight %s: %w", highlightID, err)
	}

	return nil
}

// UpdateComment overwrites the comment text and emoji for the highlight.
// Unlike UpdateHighlight this is a direct field overwrite, not a merge.
func (s *Store) UpdateComment(ctx context.Context, highlightID, text, emoji string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE highlights SET comment_text = ?, comment_emoji = ? WHERE highlight_id = ?`,
		nullable(text), nullable(emoji), highlightID)
	if err != nil {
		return fmt.Errorf("update comment %s: %w", highlightID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound.WithMessage(fmt.Sprintf("highlight %s not found", highlightID))
	}
	return nil
}

// HighlightExists reports whether the highlight row has been persisted. Used
// as the precondition gate before any tag link insert.
func (s *Store) HighlightExists(ctx context.Context, highlightID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM highlights WHERE highlight_id = ?`, highlightID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check highlight: %w", err)
	}
	return count > 0, nil
}

// DeleteHighlight removes the highlight and its tag links.
func (s *Store) DeleteHighlight(ctx context.Context, highlightID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM highlight_tags WHERE highlight_id = ?`, highlightID); err != nil {
		return fmt.Errorf("delete links: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM highlights WHERE highlight_id = ?`, highlightID)
	if err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound.WithMessage(fmt.Sprintf("highlight %s not found", highlightID))
	}

	return tx.Commit()
}
