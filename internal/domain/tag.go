package domain

import "time"

// Tag is a user-defined label shared across all documents. Names keep the
// casing the user typed, but identity is case-insensitive: "Important" and
// "important" are the same tag.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagUsage pairs a tag with the number of highlights it is attached to.
type TagUsage struct {
	Tag   Tag   `json:"tag"`
	Count int64 `json:"count"`
}

// TagRecency pairs a tag with the creation time of its most recent link.
type TagRecency struct {
	Tag      Tag       `json:"tag"`
	LastUsed time.Time `json:"last_used"`
}
