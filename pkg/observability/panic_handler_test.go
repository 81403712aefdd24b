package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	assert.NotPanics(t, func() {
		defer RecoverPanic(logger, "watch loop")
		panic("boom")
	})
	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), "watch loop")
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))
	assert.EqualError(t, MustRecover("boom"), "panic: boom")
}

func TestRecoverMiddleware(t *testing.T) {
	var buf bytes.Buffer
	h := RecoverMiddleware(NewLogger(InfoLevel, &buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/compile", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "handler exploded")
}
