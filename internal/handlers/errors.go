package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"firesafety/internal/logger"
	"firesafety/internal/repository"
	"firesafety/internal/security"
	"firesafety/internal/service"
	"firesafety/internal/validation"
)

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Message string                       `json:"message"`
	Errors  []validation.ValidationError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Error(logMsg, "error", err, "status", status)
	}
	writeJSON(w, status, errorResponse{Message: userMsg})
}

// writeServiceError maps service errors to status codes
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	var single validation.ValidationError
	var many validation.Errors
	switch {
	case errors.As(err, &many):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation failed", Errors: many})
	case errors.As(err, &single):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: single.Error(), Errors: []validation.ValidationError{single}})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorResponse{Message: ErrForbidden})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, security.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: ErrUnauthenticated})
	case errors.Is(err, service.ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Message: err.Error()})
	case errors.Is(err, repository.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Update conflict, please retry"})
	default:
		respondWithError(w, log, http.StatusInternalServerError, ErrInternalServerError, "", err)
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
