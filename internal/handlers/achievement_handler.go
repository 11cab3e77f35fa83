package handlers

import (
	"net/http"

	"firesafety/internal/logger"
	"firesafety/internal/service"
)

// AchievementHandler serves the catalog and the caller's awards
type AchievementHandler struct {
	achievementService *service.AchievementService
	log                *logger.Logger
}

// NewAchievementHandler creates a new achievement handler
func NewAchievementHandler(achievementService *service.AchievementService, log *logger.Logger) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService, log: log}
}

// List returns the catalog
func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.achievementService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListMine returns the achievements the caller has earned
func (h *AchievementHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	earned, err := h.achievementService.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, earned)
}

// Create adds a catalog entry
func (h *AchievementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateAchievementInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ErrInvalidJSON})
		return
	}
	a, err := h.achievementService.Create(r.Context(), callerFrom(GetUserFromContext(r.Context())), input)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
