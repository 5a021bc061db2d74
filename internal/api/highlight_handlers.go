package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/marginalia-app/marginalia-server/internal/domain"
)

func (s *Server) registerHighlightRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createHighlight",
		Method:      http.MethodPost,
		Path:        "/api/v1/documents/{id}/highlights",
		Summary:     "Create highlight",
		Description: "Persists a new highlight; the server assigns an ID when the client omits one",
		Tags:        []string{"Highlights"},
	}, s.handleCreateHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "listHighlights",
		Method:      http.MethodGet,
		Path:        "/api/v1/documents/{id}/highlights",
		Summary:     "List highlights",
		Description: "Returns the document's highlights, newest first",
		Tags:        []string{"Highlights"},
	}, s.handleListHighlights)

	huma.Register(s.api, huma.Operation{
		OperationID: "getHighlight",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Get highlight",
		Tags:        []string{"Highlights"},
	}, s.handleGetHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateHighlight",
		Method:      http.MethodPatch,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Update highlight",
		Description: "Merges partial position and content patches over the stored highlight; unknown IDs are ignored",
		Tags:        []string{"Highlights"},
	}, s.handleUpdateHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateComment",
		Method:      http.MethodPut,
		Path:        "/api/v1/highlights/{id}/comment",
		Summary:     "Update comment",
		Description: "Overwrites the highlight's comment text and emoji",
		Tags:        []string{"Highlights"},
	}, s.handleUpdateComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteHighlight",
		Method:      http.MethodDelete,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Delete highlight",
		Tags:        []string{"Highlights"},
	}, s.handleDeleteHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "getHighlightTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights/{id}/tags",
		Summary:     "Get highlight tags",
		Tags:        []string{"Highlights"},
	}, s.handleGetHighlightTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "addHighlightTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights/{id}/tags",
		Summary:     "Add tag to highlight",
		Description: "Attaches a tag by name, creating the tag on first use",
		Tags:        []string{"Highlights"},
	}, s.handleAddHighlightTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "setHighlightTags",
		Method:      http.MethodPut,
		Path:        "/api/v1/highlights/{id}/tags",
		Summary:     "Set highlight tags",
		Description: "Reconciles the highlight's tag set to exactly the given names",
		Tags:        []string{"Highlights"},
	}, s.handleSetHighlightTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeHighlightTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/highlights/{id}/tags/{tagId}",
		Summary:     "Remove tag from highlight",
		Description: "Detaches the tag; the tag itself survives for other highlights",
		Tags:        []string{"Highlights"},
	}, s.handleRemoveHighlightTag)
}

// === DTOs ===

// RectPayload is a rectangle in page coordinates.
type RectPayload struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"pageNumber,omitempty"`
}

func toRect(r RectPayload) domain.Rect {
	return domain.Rect{
		X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2,
		Width: r.Width, Height: r.Height, PageNumber: r.PageNumber,
	}
}

func fromRect(r domain.Rect) RectPayload {
	return RectPayload{
		X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2,
		Width: r.Width, Height: r.Height, PageNumber: r.PageNumber,
	}
}

// PositionPayload is the full highlight geometry.
type PositionPayload struct {
	PageNumber   int           `json:"pageNumber" doc:"1-based page number"`
	BoundingRect *RectPayload  `json:"boundingRect,omitempty" doc:"Overall bounding rectangle"`
	Rects        []RectPayload `json:"rects,omitempty" doc:"Per-line rectangles"`
}

func toPosition(p PositionPayload) domain.Position {
	pos := domain.Position{PageNumber: p.PageNumber}
	if p.BoundingRect != nil {
		r := toRect(*p.BoundingRect)
		pos.BoundingRect = &r
	}
	for _, r := range p.Rects {
		pos.Rects = append(pos.Rects, toRect(r))
	}
	return pos
}

func fromPosition(p domain.Position) PositionPayload {
	out := PositionPayload{PageNumber: p.PageNumber}
	if p.BoundingRect != nil {
		r := fromRect(*p.BoundingRect)
		out.BoundingRect = &r
	}
	for _, r := range p.Rects {
		out.Rects = append(out.Rects, fromRect(r))
	}
	return out
}

// HighlightResponse contains highlight data in API responses.
type HighlightResponse struct {
	ID           string          `json:"id" doc:"Client-generated highlight ID"`
	DocumentID   int64           `json:"documentId" doc:"Owning document"`
	ContentText  string          `json:"contentText,omitempty" doc:"Selected text"`
	ContentImage string          `json:"contentImage,omitempty" doc:"Area screenshot data URL"`
	CommentText  string          `json:"commentText,omitempty" doc:"Comment text"`
	CommentEmoji string          `json:"commentEmoji,omitempty" doc:"Comment emoji"`
	Position     PositionPayload `json:"position" doc:"Geometry on the page"`
	CreatedAt    time.Time       `json:"createdAt" doc:"Creation time"`
}

func toHighlightResponse(h *domain.Highlight) HighlightResponse {
	return HighlightResponse{
		ID:           h.ID,
		DocumentID:   h.DocumentID,
		ContentText:  h.Content.Text,
		ContentImage: h.Content.Image,
		CommentText:  h.Comment.Text,
		CommentEmoji: h.Comment.Emoji,
		Position:     fromPosition(h.Position),
		CreatedAt:    h.CreatedAt,
	}
}

// CreateHighlightRequest is the request body for creating a highlight.
type CreateHighlightRequest struct {
	ID           string          `json:"id,omitempty" validate:"omitempty,max=64" doc:"Client-generated ID; assigned by the server when empty"`
	ContentText  string          `json:"contentText,omitempty" doc:"Selected text"`
	ContentImage string          `json:"contentImage,omitempty" doc:"Area screenshot data URL"`
	CommentText  string          `json:"commentText,omitempty" doc:"Comment text"`
	CommentEmoji string          `json:"commentEmoji,omitempty" doc:"Comment emoji"`
	Position     PositionPayload `json:"position" doc:"Geometry on the page"`
}

// CreateHighlightInput wraps the create highlight request for huma.
type CreateHighlightInput struct {
	DocumentID int64 `path:"id" doc:"Document ID"`
	Body       CreateHighlightRequest
}

// HighlightOutput wraps a highlight response for huma.
type HighlightOutput struct {
	Body HighlightResponse
}

// ListHighlightsOutput wraps a highlight list for huma.
type ListHighlightsOutput struct {
	Body struct {
		Highlights []HighlightResponse `json:"highlights" doc:"Highlights, newest first"`
	}
}

// HighlightIDInput is a highlight path parameter.
type HighlightIDInput struct {
	ID string `path:"id" doc:"Highlight ID"`
}

// UpdateHighlightRequest carries partial patches for a highlight. Absent
// fields keep their stored values.
type UpdateHighlightRequest struct {
	Position *struct {
		PageNumber   *int          `json:"pageNumber,omitempty" doc:"New page number"`
		BoundingRect *RectPayload  `json:"boundingRect,omitempty" doc:"New bounding rectangle"`
		Rects        []RectPayload `json:"rects,omitempty" doc:"Replacement rectangle list"`
	} `json:"position,omitempty" doc:"Position patch"`
	Content *struct {
		Text  *string `json:"text,omitempty" doc:"New selected text"`
		Image *string `json:"image,omitempty" doc:"New screenshot data URL"`
	} `json:"content,omitempty" doc:"Content patch"`
}

// UpdateHighlightInput wraps the update request for huma.
type UpdateHighlightInput struct {
	ID   string `path:"id" doc:"Highlight ID"`
	Body UpdateHighlightRequest
}

// UpdateCommentRequest is the request body for overwriting a comment.
type UpdateCommentRequest struct {
	Text  string `json:"text" validate:"max=10000" doc:"Comment text"`
	Emoji string `json:"emoji,omitempty" validate:"max=16" doc:"Comment emoji"`
}

// UpdateCommentInput wraps the comment request for huma.
type UpdateCommentInput struct {
	ID   string `path:"id" doc:"Highlight ID"`
	Body UpdateCommentRequest
}

// AddHighlightTagRequest is the request body for attaching a tag.
type AddHighlightTagRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120" doc:"Tag name"`
}

// AddHighlightTagInput wraps the tag attach request for huma.
type AddHighlightTagInput struct {
	ID   string `path:"id" doc:"Highlight ID"`
	Body AddHighlightTagRequest
}

// SetHighlightTagsRequest is the request body for reconciling the tag set.
type SetHighlightTagsRequest struct {
	Tags []string `json:"tags" doc:"Complete desired tag names; the persisted set converges to exactly these"`
}

// SetHighlightTagsInput wraps the reconcile request for huma.
type SetHighlightTagsInput struct {
	ID   string `path:"id" doc:"Highlight ID"`
	Body SetHighlightTagsRequest
}

// RemoveHighlightTagInput identifies a single highlight-tag link.
type RemoveHighlightTagInput struct {
	ID    string `path:"id" doc:"Highlight ID"`
	TagID int64  `path:"tagId" doc:"Tag ID"`
}

// HighlightTagsOutput wraps a highlight's tag list for huma.
type HighlightTagsOutput struct {
	Body struct {
		Tags []TagResponse `json:"tags" doc:"Tags on this highlight, alphabetical"`
	}
}

// === Handlers ===

func (s *Server) handleCreateHighlight(ctx context.Context, input *CreateHighlightInput) (*HighlightOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	h := &domain.Highlight{
		ID:         input.Body.ID,
		DocumentID: input.DocumentID,
		Content:    domain.Content{Text: input.Body.ContentText, Image: input.Body.ContentImage},
		Comment:    domain.Comment{Text: input.Body.CommentText, Emoji: input.Body.CommentEmoji},
		Position:   toPosition(input.Body.Position),
	}

	created, err := s.services.Annotations.CreateHighlight(ctx, h)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: toHighlightResponse(created)}, nil
}

func (s *Server) handleListHighlights(ctx context.Context, input *DocumentIDInput) (*ListHighlightsOutput, error) {
	highlights, err := s.services.Annotations.ListHighlights(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ListHighlightsOutput{}
	out.Body.Highlights = make([]HighlightResponse, len(highlights))
	for i, h := range highlights {
		out.Body.Highlights[i] = toHighlightResponse(h)
	}
	return out, nil
}

func (s *Server) handleGetHighlight(ctx context.Context, input *HighlightIDInput) (*HighlightOutput, error) {
	h, err := s.services.Annotations.GetHighlight(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: toHighlightResponse(h)}, nil
}

func (s *Server) handleUpdateHighlight(ctx context.Context, input *UpdateHighlightInput) (*MessageOutput, error) {
	pos := &domain.PositionPatch{}
	if input.Body.Position != nil {
		pos.PageNumber = input.Body.Position.PageNumber
		if input.Body.Position.BoundingRect != nil {
			r := toRect(*input.Body.Position.BoundingRect)
			pos.BoundingRect = &r
		}
		for _, r := range input.Body.Position.Rects {
			pos.Rects = append(pos.Rects, toRect(r))
		}
	}

	content := &domain.ContentPatch{}
	if input.Body.Content != nil {
		content.Text = input.Body.Content.Text
		content.Image = input.Body.Content.Image
	}

	if err := s.services.Annotations.UpdateHighlight(ctx, input.ID, pos, content); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Highlight updated"}}, nil
}

func (s *Server) handleUpdateComment(ctx context.Context, input *UpdateCommentInput) (*MessageOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	if err := s.services.Annotations.UpdateComment(ctx, input.ID, input.Body.Text, input.Body.Emoji); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Comment updated"}}, nil
}

func (s *Server) handleDeleteHighlight(ctx context.Context, input *HighlightIDInput) (*MessageOutput, error) {
	if err := s.services.Annotations.DeleteHighlight(ctx, input.ID); err != nil {
		return nil, err
	}
	s.services.Suggestions.Invalidate()
	return &MessageOutput{Body: MessageResponse{Message: "Highlight deleted"}}, nil
}

func (s *Server) handleGetHighlightTags(ctx context.Context, input *HighlightIDInput) (*HighlightTagsOutput, error) {
	tags, err := s.services.Annotations.GetHighlightTags(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &HighlightTagsOutput{}
	out.Body.Tags = toTagResponses(tags)
	return out, nil
}

func (s *Server) handleAddHighlightTag(ctx context.Context, input *AddHighlightTagInput) (*HighlightTagsOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	tags, err := s.services.Annotations.AddHighlightTag(ctx, input.ID, input.Body.Name)
	if err != nil {
		return nil, err
	}
	s.services.Suggestions.Invalidate()

	out := &HighlightTagsOutput{}
	out.Body.Tags = toTagResponses(tags)
	return out, nil
}

func (s *Server) handleSetHighlightTags(ctx context.Context, input *SetHighlightTagsInput) (*HighlightTagsOutput, error) {
	tags, err := s.services.Annotations.ReconcileHighlightTags(ctx, input.ID, input.Body.Tags)
	if err != nil {
		return nil, err
	}
	s.services.Suggestions.Invalidate()

	out := &HighlightTagsOutput{}
	out.Body.Tags = toTagResponses(tags)
	return out, nil
}

func (s *Server) handleRemoveHighlightTag(ctx context.Context, input *RemoveHighlightTagInput) (*HighlightTagsOutput, error) {
	tags, err := s.services.Annotations.RemoveHighlightTag(ctx, input.ID, input.TagID)
	if err != nil {
		return nil, err
	}
	s.services.Suggestions.Invalidate()

	out := &HighlightTagsOutput{}
	out.Body.Tags = toTagResponses(tags)
	return out, nil
}
