package domain

import "time"

// Document is a PDF the user has opened at least once. A row is created on
// the first open of a path and reused afterwards; re-opening only bumps
// LastOpened.
type Document struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	DateAdded  time.Time `json:"date_added"`
	LastOpened time.Time `json:"last_opened"`
	// Missing is set by the library watcher when the backing file is no
	// longer at Path. Cleared when the path is registered again.
	Missing bool `json:"missing"`
}
