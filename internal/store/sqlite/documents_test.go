package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/store"
)

func TestRegisterDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := makeTestDocument(t, s, "paper.pdf", "/library/paper.pdf")
	if doc.ID == 0 {
		t.Error("expected non-zero document id")
	}
	if doc.Name != "paper.pdf" || doc.Path != "/library/paper.pdf" {
		t.Errorf("unexpected document fields: %+v", doc)
	}
	if doc.DateAdded.IsZero() || doc.LastOpened.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Path != doc.Path {
		t.Errorf("expected path %s, got %s", doc.Path, got.Path)
	}
}

func TestRegisterDocument_SamePathReusesRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := makeTestDocument(t, s, "paper.pdf", "/library/paper.pdf")
	time.Sleep(2 * time.Millisecond)
	second := makeTestDocument(t, s, "paper.pdf", "/library/paper.pdf")

	if second.ID != first.ID {
		t.Errorf("expected same id for same path, got %d and %d", first.ID, second.ID)
	}
	if !second.LastOpened.After(first.LastOpened) {
		t.Errorf("expected last_opened to advance: %v -> %v", first.LastOpened, second.LastOpened)
	}
	if !second.DateAdded.Equal(first.DateAdded) {
		t.Errorf("date_added must not change on reopen: %v -> %v", first.DateAdded, second.DateAdded)
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected a single row, got %d", len(docs))
	}
}

func TestRegisterDocument_ClearsMissingFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := makeTestDocument(t, s, "paper.pdf", "/library/paper.pdf")

	if err := s.SetDocumentMissing(ctx, doc.Path, true); err != nil {
		t.Fatalf("SetDocumentMissing: %v", err)
	}
	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !got.Missing {
		t.Fatal("expected missing flag to be set")
	}

	// Opening the document again means the file is back.
	reopened := makeTestDocument(t, s, "paper.pdf", "/library/paper.pdf")
	if reopened.Missing {
		t.Error("expected missing flag cleared on re-registration")
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetDocument(context.Background(), 9999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListDocuments_OrderedByLastOpened(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := makeTestDocument(t, s, "a.pdf", "/library/a.pdf")
	time.Sleep(2 * time.Millisecond)
	newer := makeTestDocument(t, s, "b.pdf", "/library/b.pdf")

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != newer.ID || docs[1].ID != older.ID {
		t.Errorf("expected most recently opened first, got [%d %d]", docs[0].ID, docs[1].ID)
	}
}

func TestDeleteDocument_CascadesHighlightsAndLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := makeTestDocument(t, s, "paper.pdf", "/library/paper.pdf")
	h := makeTestHighlight("hl-doc-delete-1", doc.ID)
	if err := s.CreateHighlight(ctx, h); err != nil {
		t.Fatalf("CreateHighlight: %v", err)
	}
	if err := s.AddHighlightTag(ctx, h.ID, "physics"); err != nil {
		t.Fatalf("AddHighlightTag: %v", err)
	}

	if err := s.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if _, err := s.GetDocument(ctx, doc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected document gone, got %v", err)
	}
	if _, err := s.GetHighlight(ctx, h.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected highlight gone, got %v", err)
	}

	var links int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM highlight_tags`).Scan(&links); err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != 0 {
		t.Errorf("expected no surviving links, got %d", links)
	}

	// The tag itself survives; only links are removed.
	if _, err := s.GetTagByName(ctx, "physics"); err != nil {
		t.Errorf("expected tag to survive document delete, got %v", err)
	}
}

func TestDeleteDocument_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.DeleteDocument(context.Background(), 424242)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
