package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/marginalia-app/marginalia-server/internal/domain"
)

func (s *Server) registerDocumentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "openDocument",
		Method:      http.MethodPost,
		Path:        "/api/v1/documents/open",
		Summary:     "Open document",
		Description: "Registers the document at a path (or re-opens a known one) and returns its stored annotations",
		Tags:        []string{"Documents"},
	}, s.handleOpenDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDocuments",
		Method:      http.MethodGet,
		Path:        "/api/v1/documents",
		Summary:     "List documents",
		Description: "Returns the library, most recently opened first",
		Tags:        []string{"Documents"},
	}, s.handleListDocuments)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDocument",
		Method:      http.MethodGet,
		Path:        "/api/v1/documents/{id}",
		Summary:     "Get document",
		Tags:        []string{"Documents"},
	}, s.handleGetDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteDocument",
		Method:      http.MethodDelete,
		Path:        "/api/v1/documents/{id}",
		Summary:     "Delete document",
		Description: "Removes the document together with its highlights and tag links",
		Tags:        []string{"Documents"},
	}, s.handleDeleteDocument)
}

// === DTOs ===

// DocumentResponse contains document data in API responses.
type DocumentResponse struct {
	ID         int64     `json:"id" doc:"Document ID"`
	Name       string    `json:"name" doc:"Display name"`
	Path       string    `json:"path" doc:"Absolute path on disk"`
	DateAdded  time.Time `json:"dateAdded" doc:"First open time"`
	LastOpened time.Time `json:"lastOpened" doc:"Most recent open time"`
	Missing    bool      `json:"missing" doc:"Whether the file is currently absent from disk"`
}

func toDocumentResponse(d *domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID,
		Name:       d.Name,
		Path:       d.Path,
		DateAdded:  d.DateAdded,
		LastOpened: d.LastOpened,
		Missing:    d.Missing,
	}
}

// OpenDocumentRequest is the request body for opening a document.
type OpenDocumentRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255" doc:"Display name, usually the file name"`
	Path string `json:"path" validate:"required,min=1" doc:"Absolute path on disk"`
}

// OpenDocumentInput wraps the open document request for huma.
type OpenDocumentInput struct {
	Body OpenDocumentRequest
}

// DocumentViewResponse is a document with its highlights and their tags.
type DocumentViewResponse struct {
	Document   DocumentResponse         `json:"document" doc:"The document"`
	Highlights []HighlightResponse      `json:"highlights" doc:"Stored highlights, newest first"`
	Tags       map[string][]TagResponse `json:"tags" doc:"Tags per highlight ID"`
}

// DocumentViewOutput wraps the document view for huma.
type DocumentViewOutput struct {
	Body DocumentViewResponse
}

// ListDocumentsResponse contains the document library.
type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents" doc:"All known documents"`
}

// ListDocumentsOutput wraps the list for huma.
type ListDocumentsOutput struct {
	Body ListDocumentsResponse
}

// DocumentIDInput is a document path parameter.
type DocumentIDInput struct {
	ID int64 `path:"id" doc:"Document ID"`
}

// DocumentOutput wraps a single document for huma.
type DocumentOutput struct {
	Body DocumentResponse
}

// === Handlers ===

func (s *Server) handleOpenDocument(ctx context.Context, input *OpenDocumentInput) (*DocumentViewOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	view, err := s.services.Annotations.OpenDocument(ctx, input.Body.Name, input.Body.Path)
	if err != nil {
		return nil, err
	}

	highlights := make([]HighlightResponse, len(view.Highlights))
	for i, h := range view.Highlights {
		highlights[i] = toHighlightResponse(h)
	}

	tags := make(map[string][]TagResponse, len(view.Tags))
	for highlightID, hTags := range view.Tags {
		tags[highlightID] = toTagResponses(hTags)
	}

	return &DocumentViewOutput{Body: DocumentViewResponse{
		Document:   toDocumentResponse(view.Document),
		Highlights: highlights,
		Tags:       tags,
	}}, nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ *struct{}) (*ListDocumentsOutput, error) {
	docs, err := s.services.Annotations.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		resp[i] = toDocumentResponse(d)
	}
	return &ListDocumentsOutput{Body: ListDocumentsResponse{Documents: resp}}, nil
}

func (s *Server) handleGetDocument(ctx context.Context, input *DocumentIDInput) (*DocumentOutput, error) {
	doc, err := s.services.Annotations.GetDocument(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &DocumentOutput{Body: toDocumentResponse(doc)}, nil
}

func (s *Server) handleDeleteDocument(ctx context.Context, input *DocumentIDInput) (*MessageOutput, error) {
	if err := s.services.Annotations.DeleteDocument(ctx, input.ID); err != nil {
		return nil, err
	}
	s.services.Suggestions.Invalidate()
	return &MessageOutput{Body: MessageResponse{Message: "Document deleted"}}, nil
}
