package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwsanalytics/posts-backend/internal/version"
)

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(func() int { return 3 })(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, version.Short(), resp.Version)
	assert.Equal(t, 3, resp.Tables)
}

func TestVersion(t *testing.T) {
	rec := httptest.NewRecorder()
	Version()(rec, httptest.NewRequest(http.MethodGet, "/version", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)

	var info version.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, version.Get(), info)
}
