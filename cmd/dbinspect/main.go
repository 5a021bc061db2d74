// Package main provides a tool to inspect the annotation database.
//
// Usage:
//
//	DB_PATH=~/Marginalia/marginalia.db go run ./cmd/dbinspect
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Marginalia/marginalia.db")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	counts := []struct {
		label string
		query string
	}{
		{"Documents", "SELECT COUNT(*) FROM documents"},
		{"Missing documents", "SELECT COUNT(*) FROM documents WHERE missing = 1"},
		{"Highlights", "SELECT COUNT(*) FROM highlights"},
		{"Tags", "SELECT COUNT(*) FROM tags"},
		{"Highlight-tag links", "SELECT COUNT(*) FROM highlight_tags"},
	}
	for _, c := range counts {
		var n int64
		if err := db.QueryRow(c.query).Scan(&n); err != nil {
			log.Fatalf("Failed to count (%s): %v", c.label, err)
		}
		fmt.Printf("%-20s %d\n", c.label+":", n)
	}

	fmt.Println()
	fmt.Println("=== Documents by highlight count ===")

	rows, err := db.Query(`
		SELECT d.name, d.path, d.missing, COUNT(h.id) AS highlights
		FROM documents d
		LEFT JOIN highlights h ON h.document_id = d.id
		GROUP BY d.id
		ORDER BY highlights DESC, d.name
		LIMIT 10`)
	if err != nil {
		log.Fatalf("Failed to query documents: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, path string
		var missing bool
		var highlights int64
		if err := rows.Scan(&name, &path, &missing, &highlights); err != nil {
			log.Fatalf("Failed to scan document row: %v", err)
		}
		marker := ""
		if missing {
			marker = " (MISSING)"
		}
		fmt.Printf("%4d  %s%s\n      %s\n", highlights, name, marker, path)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Error iterating documents: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Top tags ===")

	tagRows, err := db.Query(`
		SELECT t.name, COUNT(ht.highlight_id) AS uses
		FROM tags t
		LEFT JOIN highlight_tags ht ON ht.tag_id = t.id
		GROUP BY t.id
		ORDER BY uses DESC, t.name
		LIMIT 10`)
	if err != nil {
		log.Fatalf("Failed to query tags: %v", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var name string
		var uses int64
		if err := tagRows.Scan(&name, &uses); err != nil {
			log.Fatalf("Failed to scan tag row: %v", err)
		}
		fmt.Printf("%4d  %s\n", uses, name)
	}
	if err := tagRows.Err(); err != nil {
		log.Fatalf("Error iterating tags: %v", err)
	}
}
