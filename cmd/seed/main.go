// Package main provides a tool to seed the database with test annotation data.
//
// This registers a few documents and creates highlights with tags to exercise
// suggestion rankings during development.
//
// Usage:
//
//	DATA_PATH=~/Marginalia go run ./cmd/seed
//	DATA_PATH=~/Marginalia go run ./cmd/seed --documents 10
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/id"
	"github.com/marginalia-app/marginalia-server/internal/store/sqlite"
)

var documents = flag.Int("documents", 5, "Number of documents to register")

var tagNames = []string{
	"important", "methods", "results", "background", "follow-up",
	"definitions", "figures", "critique", "to-cite", "physics",
}

var snippets = []string{
	"The proposed approach outperforms the baseline by a wide margin.",
	"We leave a formal treatment of convergence to future work.",
	"Table 2 summarizes ablation results across all datasets.",
	"This assumption does not hold under distribution shift.",
	"The key insight is that both objectives share a common bound.",
}

func main() {
	flag.Parse()

	basePath := os.Getenv("DATA_PATH")
	if basePath == "" {
		basePath = os.ExpandEnv("$HOME/Marginalia")
	}
	dbPath := filepath.Join(basePath, "marginalia.db")

	fmt.Printf("Opening database at: %s\n", dbPath)

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	totalHighlights := 0
	totalLinks := 0

	for d := 0; d < *documents; d++ {
		name := fmt.Sprintf("paper-%02d.pdf", d+1)
		path := filepath.Join(basePath, "library", name)

		doc, err := s.RegisterDocument(ctx, name, path)
		if err != nil {
			log.Fatalf("Failed to register document %s: %v", name, err)
		}
		fmt.Printf("\nDocument: %s (id %d)\n", doc.Name, doc.ID)

		// 2-6 highlights per document
		numHighlights := 2 + rng.Intn(5)
		for n := 0; n < numHighlights; n++ {
			h := randomHighlight(rng, doc.ID)
			if err := s.CreateHighlight(ctx, h); err != nil {
				log.Fatalf("Failed to create highlight: %v", err)
			}
			totalHighlights++

			// 0-3 tags per highlight
			numTags := rng.Intn(4)
			for t := 0; t < numTags; t++ {
				tag := tagNames[rng.Intn(len(tagNames))]
				if err := s.AddHighlightTag(ctx, h.ID, tag); err != nil {
					log.Fatalf("Failed to tag highlight: %v", err)
				}
				totalLinks++
			}
			fmt.Printf("  highlight %s on page %d (%d tags)\n", h.ID, h.Position.PageNumber, numTags)
		}
	}

	fmt.Printf("\nSeeded %d documents, %d highlights, %d tag links\n",
		*documents, totalHighlights, totalLinks)
}

func randomHighlight(rng *rand.Rand, documentID int64) *domain.Highlight {
	page := 1 + rng.Intn(20)
	y := float64(rng.Intn(700))

	rect := domain.Rect{
		X1: 72, Y1: y, X2: 520, Y2: y + 14,
		Width: 448, Height: 14, PageNumber: page,
	}

	return &domain.Highlight{
		ID:         id.MustGenerate("hl"),
		DocumentID: documentID,
		Content:    domain.Content{Text: snippets[rng.Intn(len(snippets))]},
		Position: domain.Position{
			PageNumber:   page,
			BoundingRect: &rect,
			Rects:        []domain.Rect{rect},
		},
		CreatedAt: time.Now().Add(-time.Duration(rng.Intn(72)) * time.Hour),
	}
}
