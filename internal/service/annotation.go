package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/id"
	"github.com/marginalia-app/marginalia-server/internal/normalize"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// maxReconcileAttempts bounds the re-diff loop in ReconcileHighlightTags.
// Each attempt re-reads the persisted set, so concurrent writers converge
// within a couple of rounds; past that we report the divergence instead of
// spinning.
const maxReconcileAttempts = 3

// LibraryWatcher receives document paths to keep under file observation.
// Implemented by the fsnotify-backed watcher; nil disables watching.
type LibraryWatcher interface {
	Add(path string) error
}

// AnnotationService orchestrates documents, highlights, and their tag links.
type AnnotationService struct {
	store   store.Store
	watcher LibraryWatcher
	logger  *slog.Logger
}

// NewAnnotationService creates a new annotation service.
func NewAnnotationService(st store.Store, watcher LibraryWatcher, logger *slog.Logger) *AnnotationService {
	return &AnnotationService{
		store:   st,
		watcher: watcher,
		logger:  logger,
	}
}

// Annotation service errors.
var (
	ErrReconcileDiverged = errors.New("tag set did not converge on the requested state")
)

// DocumentView is a document together with its stored highlights and each
// highlight's tags, the full payload a reader needs when opening a file.
type DocumentView struct {
	Document   *domain.Document         `json:"document"`
	Highlights []*domain.Highlight      `json:"highlights"`
	Tags       map[string][]*domain.Tag `json:"tags"`
}

// OpenDocument registers (or re-registers) the document at path and returns
// everything stored for it. The path also goes to the file watcher so a later
// move or delete flips the missing flag.
func (s *AnnotationService) OpenDocument(ctx context.Context, name, path string) (*DocumentView, error) {
	doc, err := s.store.RegisterDocument(ctx, name, path)
	if err != nil {
		return nil, err
	}

	highlights, err := s.store.ListHighlights(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	tags := make(map[string][]*domain.Tag, len(highlights))
	for _, h := range highlights {
		ht, err := s.store.GetHighlightTags(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		tags[h.ID] = ht
	}

	if s.watcher != nil {
		if err := s.watcher.Add(path); err != nil {
			// Watching is best effort; the library works without it.
			s.logger.Warn("could not watch document", "path", path, "error", err)
		}
	}

	return &DocumentView{Document: doc, Highlights: highlights, Tags: tags}, nil
}

// ListDocuments returns the library, most recently opened first.
func (s *AnnotationService) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// GetDocument returns a single document by ID.
func (s *AnnotationService) GetDocument(ctx context.Context, documentID int64) (*domain.Document, error) {
	return s.store.GetDocument(ctx, documentID)
}

// DeleteDocument removes the document and all annotation data attached to it.
func (s *AnnotationService) DeleteDocument(ctx context.Context, documentID int64) error {
	return s.store.DeleteDocument(ctx, documentID)
}

// CreateHighlight persists a new highlight. If the client did not assign an
// ID one is generated here, so the caller always gets the ID back for
// follow-up tagging.
func (s *AnnotationService) CreateHighlight(ctx context.Context, h *domain.Highlight) (*domain.Highlight, error) {
	if h.ID == "" {
		generated, err := id.NewHighlightID()
		if err != nil {
			return nil, err
		}
		h.ID = generated
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	// The document must exist; a highlight cannot float free.
	if _, err := s.store.GetDocument(ctx, h.DocumentID); err != nil {
		return nil, err
	}

	if err := s.store.CreateHighlight(ctx, h); err != nil {
		return nil, err
	}

	s.logger.Info("highlight created",
		"highlight_id", h.ID,
		"document_id", h.DocumentID,
		"page", h.Position.PageNumber,
	)
	return h, nil
}

// ListHighlights returns a document's highlights, newest first.
func (s *AnnotationService) ListHighlights(ctx context.Context, documentID int64) ([]*domain.Highlight, error) {
	return s.store.ListHighlights(ctx, documentID)
}

// GetHighlight returns a single highlight by its client-generated ID.
func (s *AnnotationService) GetHighlight(ctx context.Context, highlightID string) (*domain.Highlight, error) {
	return s.store.GetHighlight(ctx, highlightID)
}

// UpdateHighlight applies partial position and content patches. Unknown IDs
// are absorbed by the store as a no-op.
func (s *AnnotationService) UpdateHighlight(ctx context.Context, highlightID string, pos *domain.PositionPatch, content *domain.ContentPatch) error {
	return s.store.UpdateHighlight(ctx, highlightID, pos, content)
}

// UpdateComment overwrites the highlight's comment.
func (s *AnnotationService) UpdateComment(ctx context.Context, highlightID, text, emoji string) error {
	return s.store.UpdateComment(ctx, highlightID, text, emoji)
}

// DeleteHighlight removes a highlight and its tag links.
func (s *AnnotationService) DeleteHighlight(ctx context.Context, highlightID string) error {
	return s.store.DeleteHighlight(ctx, highlightID)
}

// AddHighlightTag attaches a tag by name, creating the tag on first use.
func (s *AnnotationService) AddHighlightTag(ctx context.Context, highlightID, name string) ([]*domain.Tag, error) {
	if err := s.store.AddHighlightTag(ctx, highlightID, name); err != nil {
		return nil, err
	}
	return s.store.GetHighlightTags(ctx, highlightID)
}

// RemoveHighlightTag detaches a tag from a highlight. The tag row survives
// for reuse on other highlights.
func (s *AnnotationService) RemoveHighlightTag(ctx context.Context, highlightID string, tagID int64) ([]*domain.Tag, error) {
	if err := s.store.RemoveHighlightTag(ctx, highlightID, tagID); err != nil {
		return nil, err
	}
	return s.store.GetHighlightTags(ctx, highlightID)
}

// GetHighlightTags returns the highlight's tags, alphabetical.
func (s *AnnotationService) GetHighlightTags(ctx context.Context, highlightID string) ([]*domain.Tag, error) {
	return s.store.GetHighlightTags(ctx, highlightID)
}

// ListTags returns every tag in the library.
func (s *AnnotationService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return s.store.ListTags(ctx)
}

// CreateTag creates (or resolves) a tag without attaching it to anything.
func (s *AnnotationService) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	return s.store.FindOrCreateTag(ctx, name)
}

// DeleteTags removes a batch of tags and all their links, atomically.
func (s *AnnotationService) DeleteTags(ctx context.Context, tagIDs []int64) error {
	return s.store.DeleteTags(ctx, tagIDs)
}

// ReconcileHighlightTags drives the highlight's persisted tag set to match
// desired, given by name. The persisted set is read, diffed against the
// request, and the difference applied as individual adds and removes; names
// compare case-insensitively so "Important" never detaches "important".
//
// Apply-then-verify runs up to maxReconcileAttempts times. Adds and removes
// are each idempotent, so a retry after a concurrent writer is safe; if the
// sets still differ after the final attempt the caller gets
// ErrReconcileDiverged along with whatever is persisted.
func (s *AnnotationService) ReconcileHighlightTags(ctx context.Context, highlightID string, desired []string) ([]*domain.Tag, error) {
	var current []*domain.Tag

	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		// 1. Read the persisted set.
		var err error
		current, err = s.store.GetHighlightTags(ctx, highlightID)
		if err != nil {
			return nil, err
		}

		// 2. Diff by folded name.
		toAdd, toRemove := diffTagSets(current, desired)
		if len(toAdd) == 0 && len(toRemove) == 0 {
			return current, nil
		}

		// 3. Apply adds first so a crash mid-way leaves extra tags
		// rather than lost ones.
		for _, name := range toAdd {
			if err := s.store.AddHighlightTag(ctx, highlightID, name); err != nil {
				return nil, fmt.Errorf("add %q: %w", name, err)
			}
		}
		for _, tagID := range toRemove {
			if err := s.store.RemoveHighlightTag(ctx, highlightID, tagID); err != nil {
				return nil, fmt.Errorf("remove tag %d: %w", tagID, err)
			}
		}

		s.logger.Debug("reconciled highlight tags",
			"highlight_id", highlightID,
			"added", len(toAdd),
			"removed", len(toRemove),
			"attempt", attempt,
		)
	}

	// 4. Final verification read.
	current, err := s.store.GetHighlightTags(ctx, highlightID)
	if err != nil {
		return nil, err
	}
	if added, removed := diffTagSets(current, desired); len(added) == 0 && len(removed) == 0 {
		return current, nil
	}
	return current, ErrReconcileDiverged
}

// diffTagSets compares persisted tags against desired names under folded
// comparison. It returns the names to add and the tag IDs to remove.
func diffTagSets(current []*domain.Tag, desired []string) (toAdd []string, toRemove []int64) {
	want := make(map[string]string, len(desired))
	for _, name := range desired {
		folded := normalize.Fold(name)
		if folded == "" {
			continue
		}
		if _, seen := want[folded]; !seen {
			want[folded] = name
		}
	}

	have := make(map[string]bool, len(current))
	for _, t := range current {
		folded := normalize.Fold(t.Name)
		have[folded] = true
		if _, keep := want[folded]; !keep {
			toRemove = append(toRemove, t.ID)
		}
	}

	for folded, original := range want {
		if !have[folded] {
			toAdd = append(toAdd, original)
		}
	}

	return toAdd, toRemove
}
