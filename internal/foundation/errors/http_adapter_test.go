package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation", ValidationError("invalid path").Build(), http.StatusBadRequest},
		{"not found", NotFoundError("path not set").Build(), http.StatusNotFound},
		{"state", StateError("store disposed").Build(), http.StatusServiceUnavailable},
		{"journal", JournalError("query failed").Build(), http.StatusInternalServerError},
		{"unclassified", &customHTTPError{msg: "unknown error"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.StatusCodeFor(tt.err))
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())
	r := httptest.NewRequest(http.MethodGet, "/api/state/bad..path", nil)
	w := httptest.NewRecorder()

	adapter.WriteErrorResponse(w, r, ValidationError("invalid path").WithContext("path", "bad..path").Build())

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response HTTPErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "invalid path", response.Error)
	assert.Equal(t, string(CategoryValidation), response.Code)
	assert.Equal(t, "bad..path", response.Details["path"])
	assert.False(t, response.Retryable)
}

func TestHTTPErrorAdapter_FormatErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	resp := adapter.FormatErrorResponse(JournalError("query failed").Build())
	assert.Equal(t, "query failed", resp.Error)
	assert.True(t, resp.Retryable)

	plain := adapter.FormatErrorResponse(&customHTTPError{msg: "boom"})
	assert.Equal(t, "boom", plain.Error)
	assert.Empty(t, plain.Code)
}

// customHTTPError is a test helper for unclassified errors
type customHTTPError struct {
	msg string
}

func (e *customHTTPError) Error() string {
	return e.msg
}
