// Package domain defines the annotation model persisted by the store.
package domain

import "time"

// Rect is a selection rectangle in viewport coordinates on a single page.
type Rect struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"pageNumber,omitempty"`
}

// Position is the full selection geometry of a highlight. Text highlights
// carry one rect per selected line in Rects; area highlights carry only the
// bounding rect. The whole struct round-trips through the position_data
// column as JSON, so field names match the viewer's wire format.
type Position struct {
	PageNumber   int    `json:"pageNumber"`
	BoundingRect *Rect  `json:"boundingRect,omitempty"`
	Rects        []Rect `json:"rects,omitempty"`
}

// Content holds what was highlighted. Exactly one of Text or Image is set:
// text selections carry the selected text, area selections carry an opaque
// encoded bitmap that the server never decodes.
type Content struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Comment is the user's note attached to a highlight.
type Comment struct {
	Text  string `json:"text"`
	Emoji string `json:"emoji"`
}

// Highlight is a single annotation on a document page.
//
// ID is a client-generated string (see internal/id), assigned before the
// insert reaches the store. That lets the viewer reference an annotation
// while its persistence is still in flight; tag links are gated on the row
// actually existing.
type Highlight struct {
	ID         string    `json:"id"`
	DocumentID int64     `json:"document_id"`
	Content    Content   `json:"content"`
	Comment    Comment   `json:"comment"`
	Position   Position  `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// PositionPatch carries only the position fields that changed. Nil pointer
// fields (and a nil Rects slice) leave the stored values untouched.
type PositionPatch struct {
	PageNumber   *int   `json:"pageNumber,omitempty"`
	BoundingRect *Rect  `json:"boundingRect,omitempty"`
	Rects        []Rect `json:"rects,omitempty"`
}

// ContentPatch carries only the content fields that changed.
type ContentPatch struct {
	Text  *string `json:"text,omitempty"`
	Image *string `json:"image,omitempty"`
}

// Merge applies the patch over pos field by field and returns the result.
// Fields absent from the patch keep their stored values.
func (pos Position) Merge(p *PositionPatch) Position {
	if p == nil {
		return pos
	}
	out := pos
	if p.PageNumber != nil {
		out.PageNumber = *p.PageNumber
	}
	if p.BoundingRect != nil {
		r := *p.BoundingRect
		out.BoundingRect = &r
	}
	if p.Rects != nil {
		out.Rects = make([]Rect, len(p.Rects))
		copy(out.Rects, p.Rects)
	}
	return out
}

// Merge applies the patch over c and returns the result.
func (c Content) Merge(p *ContentPatch) Content {
	if p == nil {
		return c
	}
	out := c
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.Image != nil {
		out.Image = *p.Image
	}
	return out
}

// IsEmpty reports whether the patch would change nothing.
func (p *PositionPatch) IsEmpty() bool {
	return p == nil || (p.PageNumber == nil && p.BoundingRect == nil && p.Rects == nil)
}

// IsEmpty reports whether the patch would change nothing.
func (p *ContentPatch) IsEmpty() bool {
	return p == nil || (p.Text == nil && p.Image == nil)
}
