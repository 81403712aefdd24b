package httputil

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBody(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		max       int64
		expectErr bool
		tooLarge  bool
	}{
		{name: "within limit", body: "openapi: 3.1.0", max: 64},
		{name: "exactly at limit", body: "1234", max: 4},
		{name: "over limit", body: "12345", max: 4, expectErr: true, tooLarge: true},
		{name: "no limit", body: strings.Repeat("x", 1024), max: 0},
		{name: "empty", body: "", max: 64, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewBufferString(tt.body))
			data, err := ReadBody(req, tt.max)
			if tt.expectErr {
				require.Error(t, err)
				assert.Equal(t, tt.tooLarge, errors.Is(err, ErrBodyTooLarge))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(data))
		})
	}
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name      string
		body      string
		expectErr bool
	}{
		{name: "valid JSON", body: `{"name": "test"}`},
		{name: "invalid JSON", body: `{invalid}`, expectErr: true},
		{name: "unknown field", body: `{"name": "test", "extra": 1}`, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/joins", bytes.NewBufferString(tt.body))
			var dest payload
			err := ParseJSON(req, &dest)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test", dest.Name)
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/joins", bytes.NewBufferString(`{invalid}`))
	var dest map[string]string

	ok := ParseJSONOrError(w, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON")
}

func TestParsePathString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/descriptions/abc", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})

	val, err := ParsePathString(req, "id")
	require.NoError(t, err)
	assert.Equal(t, "abc", val)

	_, err = ParsePathString(req, "missing")
	assert.Error(t, err)

	w := httptest.NewRecorder()
	_, ok := ParsePathStringOrError(w, req, "missing")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/catalog?kind=Schema", nil)
	assert.Equal(t, "Schema", ParseQueryString(req, "kind", ""))
	assert.Equal(t, "json", ParseQueryString(req, "format", "json"))
}
