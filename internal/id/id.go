// Package id generates client-side identifiers for highlights.
//
// Highlights are keyed by an opaque string assigned before the row ever
// reaches the store, so the viewer can reference an annotation while its
// insert is still in flight. The store treats the value as opaque; only
// uniqueness matters.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "hl-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random
// generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// NewHighlightID generates an identifier for a new highlight.
func NewHighlightID() (string, error) {
	return Generate("hl")
}

// MustGenerate is like Generate but panics if ID generation fails. Use only
// where failure should crash the program (initialization, tests).
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
