package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/normalize"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, name, created_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag
	var createdAt string

	err := scanner.Scan(&t.ID, &t.Name, &createdAt)
	if err != nil {
		return nil, err
	}

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// FindOrCreateTag resolves a name to a tag, creating it if needed.
//
// The insert is attempted first; a uniqueness violation means the tag already
// exists under some casing, so the existing row is fetched and returned. The
// UNIQUE COLLATE NOCASE constraint is the atomicity mechanism: two rapid
// calls with the same name can never produce two rows. A duplicate is never
// surfaced to the caller.
func (s *Store) FindOrCreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	name = normalize.TagName(name)
	if name == "" {
		return nil, store.ErrInvalidInput.WithMessage("tag name is empty")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (name, created_at) VALUES (?, ?)`,
		name, formatTime(now))
	if err == nil {
		tagID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("tag insert id: %w", err)
		}
		s.logger.Debug("tag created", "tag_id", tagID, "name", name)
		return &domain.Tag{ID: tagID, Name: name, CreatedAt: now}, nil
	}

	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("insert tag: %w", err)
	}

	existing, err := s.GetTagByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// GetTagByID retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByID(ctx context.Context, tagID int64) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagByName retrieves a tag by case-insensitive name match.
// Returns store.ErrNotFound if no tag matches.
func (s *Store) GetTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name = ? COLLATE NOCASE`,
		normalize.TagName(name))

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns all tags ordered alphabetically (case-insensitive).
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

// DeleteTags removes the tags and every link referencing them in a single
// transaction. Any failure, including an unknown tag ID, rolls back the
// whole operation: either all tags and links go, or none do.
func (s *Store) DeleteTags(ctx context.Context, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, tagID := range tagIDs {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tags WHERE id = ?`, tagID).Scan(&exists); err != nil {
			return fmt.Errorf("check tag %d: %w", tagID, err)
		}
		if exists == 0 {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("tag %d not found", tagID))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM highlight_tags WHERE tag_id = ?`, tagID); err != nil {
			return fmt.Errorf("delete links for tag %d: %w", tagID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tagID); err != nil {
			return fmt.Errorf("delete tag %d: %w", tagID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("tags deleted", "count", len(tagIDs))
	return nil
}

// AddHighlightTag attaches a tag (by name, created on demand) to a highlight.
//
// The highlight existence check runs first and fails with ErrNotFound before
// any tag or link is created: a link must never reference a highlight that
// was not persisted, and the usual cause is a failed or still-pending
// highlight save. An already-existing link is treated as success.
func (s *Store) AddHighlightTag(ctx context.Context, highlightID, name string) error {
	exists, err := s.HighlightExists(ctx, highlightID)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound.WithMessage(
			fmt.Sprintf("highlight %s is not persisted (its save may have failed); cannot attach tag", highlightID))
	}

	tag, err := s.FindOrCreateTag(ctx, name)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO highlight_tags (highlight_id, tag_id, created_at) VALUES (?, ?, ?)`,
		highlightID, tag.ID, formatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			// Link already present: idempotent success.
			return nil
		}
		return fmt.Errorf("insert link: %w", err)
	}

	return nil
}

// RemoveHighlightTag deletes the link row. Absent links are not an error.
func (s *Store) RemoveHighlightTag(ctx context.Context, highlightID string, tagID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM highlight_tags WHERE highlight_id = ? AND tag_id = ?`,
		highlightID, tagID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

// GetHighlightTags returns the highlight's tags in alphabetical order.
func (s *Store) GetHighlightTags(ctx context.Context, highlightID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at
		FROM tags t
		JOIN highlight_tags ht ON ht.tag_id = t.id
		WHERE ht.highlight_id = ?
		ORDER BY t.name COLLATE NOCASE ASC`,
		highlightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}
