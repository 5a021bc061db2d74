package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIs_MatchesByCode(t *testing.T) {
	err := NotFound("highlight hl-abc not persisted")

	if !Is(err, ErrNotFound) {
		t.Error("NotFound error should match ErrNotFound")
	}
	if Is(err, ErrConflict) {
		t.Error("NotFound error should not match ErrConflict")
	}
}

func TestErrorIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("reconcile tags: %w", NotFound("gone"))

	if !Is(err, ErrNotFound) {
		t.Error("wrapped domain error should still match by code")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrUnavailable, http.StatusServiceUnavailable},
		{ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.err.Code, got, tt.want)
		}
	}
}

func TestWithCause_PreservesCodeAndChain(t *testing.T) {
	cause := fmt.Errorf("disk I/O error")
	err := ErrUnavailable.WithCause(cause)

	if !Is(err, ErrUnavailable) {
		t.Error("WithCause changed the code identity")
	}
	if Unwrap(err) != cause {
		t.Error("WithCause lost the cause")
	}
}

func TestValidationWithDetails(t *testing.T) {
	err := ValidationWithDetails("validation failed", map[string]string{"name": "is required"})

	if !Is(err, ErrValidation) {
		t.Error("expected validation code")
	}
	details, ok := err.Details.(map[string]string)
	if !ok || details["name"] != "is required" {
		t.Errorf("details lost: %+v", err.Details)
	}
}
