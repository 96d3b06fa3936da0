package sdk

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesMinifiedBridge(t *testing.T) {
	raw, err := rawFS.ReadFile("codespace-preview.js")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/codespace-preview.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Less(t, rec.Body.Len(), len(raw))
	assert.Contains(t, rec.Body.String(), "CodespacePreview")
	assert.NotContains(t, rec.Body.String(), "// Preview surface bridge")
}

func TestHandlerUnknownScript(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
