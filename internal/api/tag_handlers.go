package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/marginalia-app/marginalia-server/internal/domain"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns every tag in the library, alphabetical",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags",
		Summary:     "Create tag",
		Description: "Creates a tag, or returns the existing one when the name matches case-insensitively",
		Tags:        []string{"Tags"},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/delete",
		Summary:     "Delete tags",
		Description: "Removes a batch of tags and all their highlight links; all or nothing",
		Tags:        []string{"Tags"},
	}, s.handleDeleteTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/suggestions",
		Summary:     "Suggest tags",
		Description: "Returns tag names matching the query by case-insensitive substring",
		Tags:        []string{"Tags"},
	}, s.handleSuggestTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "mostUsedTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/most-used",
		Summary:     "Most used tags",
		Tags:        []string{"Tags"},
	}, s.handleMostUsedTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "recentlyUsedTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/recently-used",
		Summary:     "Recently used tags",
		Tags:        []string{"Tags"},
	}, s.handleRecentlyUsedTags)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID        int64     `json:"id" doc:"Tag ID"`
	Name      string    `json:"name" doc:"Tag name with its original casing"`
	CreatedAt time.Time `json:"createdAt" doc:"Creation time"`
}

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
}

func toTagResponses(tags []*domain.Tag) []TagResponse {
	resp := make([]TagResponse, len(tags))
	for i, t := range tags {
		resp[i] = toTagResponse(t)
	}
	return resp
}

// ListTagsOutput wraps the tag list for huma.
type ListTagsOutput struct {
	Body struct {
		Tags []TagResponse `json:"tags" doc:"All tags, alphabetical"`
	}
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120" doc:"Tag name"`
}

// CreateTagInput wraps the create tag request for huma.
type CreateTagInput struct {
	Body CreateTagRequest
}

// TagOutput wraps a single tag for huma.
type TagOutput struct {
	Body TagResponse
}

// DeleteTagsRequest is the request body for bulk tag deletion.
type DeleteTagsRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1" doc:"Tag IDs to delete"`
}

// DeleteTagsInput wraps the bulk delete request for huma.
type DeleteTagsInput struct {
	Body DeleteTagsRequest
}

// SuggestTagsInput carries the autocomplete query.
type SuggestTagsInput struct {
	Query string `query:"q" doc:"Substring to match; empty returns the alphabetical head"`
	Limit int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
}

// SuggestTagsOutput wraps suggestion names for huma.
type SuggestTagsOutput struct {
	Body struct {
		Suggestions []string `json:"suggestions" doc:"Matching tag names, alphabetical"`
	}
}

// RankingInput carries a result limit for ranking queries.
type RankingInput struct {
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
}

// TagUsageResponse is a tag with its usage count.
type TagUsageResponse struct {
	Tag   TagResponse `json:"tag" doc:"The tag"`
	Count int64       `json:"count" doc:"Number of highlights carrying it"`
}

// MostUsedTagsOutput wraps the usage ranking for huma.
type MostUsedTagsOutput struct {
	Body struct {
		Tags []TagUsageResponse `json:"tags" doc:"Tags by usage, descending"`
	}
}

// TagRecencyResponse is a tag with its last attachment time.
type TagRecencyResponse struct {
	Tag      TagResponse `json:"tag" doc:"The tag"`
	LastUsed time.Time   `json:"lastUsed" doc:"When it was last attached to a highlight"`
}

// RecentlyUsedTagsOutput wraps the recency ranking for huma.
type RecentlyUsedTagsOutput struct {
	Body struct {
		Tags []TagRecencyResponse `json:"tags" doc:"Tags by last use, newest first"`
	}
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	tags, err := s.services.Annotations.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListTagsOutput{}
	out.Body.Tags = toTagResponses(tags)
	return out, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	tag, err := s.services.Annotations.CreateTag(ctx, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleDeleteTags(ctx context.Context, input *DeleteTagsInput) (*MessageOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	if err := s.services.Annotations.DeleteTags(ctx, input.Body.IDs); err != nil {
		return nil, err
	}
	s.services.Suggestions.Invalidate()
	return &MessageOutput{Body: MessageResponse{Message: "Tags deleted"}}, nil
}

func (s *Server) handleSuggestTags(ctx context.Context, input *SuggestTagsInput) (*SuggestTagsOutput, error) {
	names, err := s.services.Suggestions.Suggest(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}

	out := &SuggestTagsOutput{}
	out.Body.Suggestions = names
	return out, nil
}

func (s *Server) handleMostUsedTags(ctx context.Context, input *RankingInput) (*MostUsedTagsOutput, error) {
	usages, err := s.services.Suggestions.MostUsed(ctx, input.Limit)
	if err != nil {
		return nil, err
	}

	out := &MostUsedTagsOutput{}
	out.Body.Tags = make([]TagUsageResponse, len(usages))
	for i, u := range usages {
		out.Body.Tags[i] = TagUsageResponse{Tag: toTagResponse(&u.Tag), Count: u.Count}
	}
	return out, nil
}

func (s *Server) handleRecentlyUsedTags(ctx context.Context, input *RankingInput) (*RecentlyUsedTagsOutput, error) {
	recents, err := s.services.Suggestions.RecentlyUsed(ctx, input.Limit)
	if err != nil {
		return nil, err
	}

	out := &RecentlyUsedTagsOutput{}
	out.Body.Tags = make([]TagRecencyResponse, len(recents))
	for i, r := range recents {
		out.Body.Tags[i] = TagRecencyResponse{Tag: toTagResponse(&r.Tag), LastUsed: r.LastUsed}
	}
	return out, nil
}
