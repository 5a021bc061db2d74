// Package store defines the persistence interface for the Marginalia server.
//
// The store is the single source of truth for translating annotation objects
// to and from relational rows. Referential integrity between highlights and
// tag links is the store's responsibility, not the database's: link inserts
// are gated on highlight existence, and document deletion removes dependent
// highlights and links explicitly.
package store

import (
	"context"

	"github.com/marginalia-app/marginalia-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Documents
	//
	// RegisterDocument looks a document up by path. A known path gets its
	// last_opened bumped (and its missing flag cleared); an unknown path is
	// inserted with date_added = last_opened = now.
	RegisterDocument(ctx context.Context, name, path string) (*domain.Document, error)
	GetDocument(ctx context.Context, documentID int64) (*domain.Document, error)
	// ListDocuments returns the library, most recently opened first.
	ListDocuments(ctx context.Context) ([]*domain.Document, error)
	// DeleteDocument removes the document and, in the same transaction, its
	// highlights and their tag links.
	DeleteDocument(ctx context.Context, documentID int64) error
	// SetDocumentMissing flags or unflags the document at path as missing
	// from disk. Unknown paths are a no-op.
	SetDocumentMissing(ctx context.Context, path string, missing bool) error

	// Highlights
	CreateHighlight(ctx context.Context, h *domain.Highlight) error
	// ListHighlights returns the document's highlights, newest first.
	ListHighlights(ctx context.Context, documentID int64) ([]*domain.Highlight, error)
	GetHighlight(ctx context.Context, highlightID string) (*domain.Highlight, error)
	// UpdateHighlight merges the supplied patches over the stored position
	// and content. An unknown highlightID is a silent no-op (logged), since
	// a geometry update may race ahead of the creation write.
	UpdateHighlight(ctx context.Context, highlightID string, pos *domain.PositionPatch, content *domain.ContentPatch) error
	// UpdateComment overwrites the comment text and emoji.
	UpdateComment(ctx context.Context, highlightID, text, emoji string) error
	HighlightExists(ctx context.Context, highlightID string) (bool, error)
	DeleteHighlight(ctx context.Context, highlightID string) error

	// Tags
	//
	// FindOrCreateTag resolves a name to a tag, creating it if needed.
	// Matching is case-insensitive; the stored name keeps the casing of
	// whoever created it first. Never returns a uniqueness error.
	FindOrCreateTag(ctx context.Context, name string) (*domain.Tag, error)
	GetTagByID(ctx context.Context, tagID int64) (*domain.Tag, error)
	GetTagByName(ctx context.Context, name string) (*domain.Tag, error)
	// ListTags returns all tags in alphabetical order.
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	// DeleteTags removes the tags and every link referencing them in one
	// transaction; on any failure nothing is removed.
	DeleteTags(ctx context.Context, tagIDs []int64) error

	// Highlight-tag links
	//
	// AddHighlightTag verifies the highlight exists (ErrNotFound otherwise,
	// creating neither tag nor link), resolves the tag name, and inserts
	// the link. An existing link is a no-op.
	AddHighlightTag(ctx context.Context, highlightID, name string) error
	// RemoveHighlightTag deletes the link; no error if absent.
	RemoveHighlightTag(ctx context.Context, highlightID string, tagID int64) error
	// GetHighlightTags returns the highlight's tags, alphabetical.
	GetHighlightTags(ctx context.Context, highlightID string) ([]*domain.Tag, error)

	// Suggestion queries
	MostUsedTags(ctx context.Context, limit int) ([]domain.TagUsage, error)
	RecentlyUsedTags(ctx context.Context, limit int) ([]domain.TagRecency, error)
	// SearchTags matches tag names by case-insensitive substring,
	// alphabetical. An empty query returns the alphabetical head of the
	// tag list instead of erroring.
	SearchTags(ctx context.Context, query string, limit int) ([]string, error)
}
