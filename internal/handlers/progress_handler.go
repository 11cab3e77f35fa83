package handlers

import (
	"net/http"

	"firesafety/internal/logger"
	"firesafety/internal/service"
	"firesafety/internal/validation"
)

// ProgressHandler accepts game results
type ProgressHandler struct {
	progressService *service.ProgressService
	log             *logger.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService, log *logger.Logger) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, log: log}
}

// submitProgressRequest is the body of POST /api/progress.
// Completed defaults to true when omitted.
type submitProgressRequest struct {
	ModuleID  *int64   `json:"moduleId"`
	GameType  string   `json:"gameType"`
	Score     *float64 `json:"score"`
	Completed *bool    `json:"completed"`
	XPEarned  *int     `json:"xpEarned"`
}

// Submit records a finished attempt for the caller
func (h *ProgressHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ErrInvalidJSON})
		return
	}
	if req.Score == nil {
		writeServiceError(w, h.log, validation.ValidationError{Field: "score", Message: "score is required"})
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	user := GetUserFromContext(r.Context())
	result, err := h.progressService.Submit(r.Context(), service.SubmitProgressInput{
		UserID:    user.ID,
		ModuleID:  req.ModuleID,
		GameType:  req.GameType,
		Score:     *req.Score,
		Completed: completed,
		XPEarned:  req.XPEarned,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// List returns the caller's attempts
func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	records, err := h.progressService.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
