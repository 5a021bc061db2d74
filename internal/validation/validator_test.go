package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/marginalia-app/marginalia-server/internal/errors"
	"github.com/marginalia-app/marginalia-server/internal/validation"
)

type testRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
	Page int    `json:"page" validate:"gte=1"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{Name: "important", Page: 1})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       testRequest
		wantField string
	}{
		{
			name:      "missing required field",
			req:       testRequest{Name: "", Page: 1},
			wantField: "name",
		},
		{
			name:      "page below minimum",
			req:       testRequest{Name: "ok", Page: 0},
			wantField: "page",
		},
		{
			name:      "name too long",
			req:       testRequest{Name: string(make([]byte, 121)), Page: 1},
			wantField: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_JSONTagNames(t *testing.T) {
	v := validation.New()

	type tagged struct {
		DisplayName string `json:"displayName,omitempty" validate:"required"`
	}

	err := v.Validate(tagged{})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	details := domainErr.Details.(map[string]string)

	// The comma option must be stripped from the reported field name.
	assert.Contains(t, details, "displayName")
}
