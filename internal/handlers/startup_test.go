package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartupStatus(t *testing.T) {
	s := NewStartupStatus("Store", "Seed data")

	rec := httptest.NewRecorder()
	s.ShowStartupStatus(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.CompleteStep("Store")
	snap := s.snapshot()
	assert.Equal(t, 50, snap.Progress)
	assert.True(t, snap.Steps[0].Completed)
	assert.False(t, snap.Steps[1].Completed)

	s.CompleteStep("Seed data")
	s.MarkReady()
	assert.True(t, s.IsReady())

	rec = httptest.NewRecorder()
	s.ShowStartupStatus(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body startupSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 100, body.Progress)
	assert.Equal(t, "Server ready", body.Current)

	s.MarkDraining()
	assert.False(t, s.IsReady())
}
