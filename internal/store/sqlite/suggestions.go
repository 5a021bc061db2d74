package sqlite

import (
	"context"
	"strings"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/normalize"
)

// defaultSuggestionLimit caps suggestion queries when the caller passes a
// non-positive limit.
const defaultSuggestionLimit = 20

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultSuggestionLimit
	}
	return limit
}

// MostUsedTags aggregates link counts per tag, descending by count and then
// ascending by name. Tags with no links are not included.
func (s *Store) MostUsedTags(ctx context.Context, limit int) ([]domain.TagUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at, COUNT(ht.tag_id) AS uses
		FROM tags t
		JOIN highlight_tags ht ON ht.tag_id = t.id
		GROUP BY t.id
		ORDER BY uses DESC, t.name COLLATE NOCASE ASC
		LIMIT ?`,
		clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usages := []domain.TagUsage{}
	for rows.Next() {
		var u domain.TagUsage
		var createdAt string
		if err := rows.Scan(&u.Tag.ID, &u.Tag.Name, &createdAt, &u.Count); err != nil {
			return nil, err
		}
		if u.Tag.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return usages, nil
}

// RecentlyUsedTags orders tags by the creation time of their most recent
// link, newest first. Tags with no links are not included.
func (s *Store) RecentlyUsedTags(ctx context.Context, limit int) ([]domain.TagRecency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at, MAX(ht.created_at) AS last_used
		FROM tags t
		JOIN highlight_tags ht ON ht.tag_id = t.id
		GROUP BY t.id
		ORDER BY last_used DESC, t.name COLLATE NOCASE ASC
		LIMIT ?`,
		clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recents := []domain.TagRecency{}
	for rows.Next() {
		var r domain.TagRecency
		var createdAt, lastUsed string
		if err := rows.Scan(&r.Tag.ID, &r.Tag.Name, &createdAt, &lastUsed); err != nil {
			return nil, err
		}
		if r.Tag.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if r.LastUsed, err = parseTime(lastUsed); err != nil {
			return nil, err
		}
		recents = append(recents, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recents, nil
}

// SearchTags matches tag names by case-insensitive substring, alphabetical.
// An empty query returns the alphabetical head of the tag list rather than
// erroring, so the UI always has something to offer.
func (s *Store) SearchTags(ctx context.Context, query string, limit int) ([]string, error) {
	query = normalize.Fold(query)

	var pattern string
	if query != "" {
		// Escape LIKE metacharacters in user input.
		escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
		pattern = "%" + escaped + "%"
	} else {
		pattern = "%"
	}

	// LIKE compares ASCII case-insensitively by default.
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM tags
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY name COLLATE NOCASE ASC
		LIMIT ?`,
		pattern, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}
