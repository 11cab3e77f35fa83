package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"firesafety/internal/logger"
	"firesafety/internal/repository"
	"firesafety/internal/security"
	"firesafety/internal/service"
	"firesafety/internal/validation"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, logger.NewNop(), http.StatusTeapot, "Teapot", "", nil)

	assert.Equal(t, http.StatusTeapot, recorder.Code)
	assert.JSONEq(t, `{"message":"Teapot"}`, recorder.Body.String())
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	recorder := httptest.NewRecorder()

	respondWithError(recorder, log, http.StatusInternalServerError, ErrInternalServerError, "", errors.New("boom"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, ErrInternalServerError, entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["error"])
}

func TestWriteServiceErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("module 3: %w", service.ErrNotFound), http.StatusNotFound},
		{"validation", validation.ValidationError{Field: "score", Message: "bad"}, http.StatusBadRequest},
		{"validation list", validation.Errors{{Field: "title", Message: "required"}}, http.StatusBadRequest},
		{"not admin", service.ErrUnauthorized, http.StatusForbidden},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"expired session", service.ErrSessionExpired, http.StatusUnauthorized},
		{"bad token", fmt.Errorf("%w: expired", security.ErrInvalidToken), http.StatusUnauthorized},
		{"username taken", service.ErrUsernameTaken, http.StatusConflict},
		{"conflict", fmt.Errorf("update: %w", repository.ErrConflict), http.StatusConflict},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, logger.NewNop(), tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWriteServiceErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, logger.NewNop(), errors.New("dial tcp 10.0.0.5:5432: refused"))

	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
