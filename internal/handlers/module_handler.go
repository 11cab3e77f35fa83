package handlers

import (
	"net/http"
	"strconv"

	"firesafety/internal/logger"
	"firesafety/internal/models"
	"firesafety/internal/service"
)

// ModuleHandler serves the game module catalog
type ModuleHandler struct {
	moduleService *service.ModuleService
	log           *logger.Logger
}

// NewModuleHandler creates a new module handler
func NewModuleHandler(moduleService *service.ModuleService, log *logger.Logger) *ModuleHandler {
	return &ModuleHandler{moduleService: moduleService, log: log}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ErrInvalidID})
		return 0, false
	}
	return id, true
}

// List returns every module
func (h *ModuleHandler) List(w http.ResponseWriter, r *http.Request) {
	modules, err := h.moduleService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

// Get returns one module
func (h *ModuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	m, err := h.moduleService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Create adds a module
func (h *ModuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateModuleInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ErrInvalidJSON + ": " + err.Error()})
		return
	}
	m, err := h.moduleService.Create(r.Context(), callerFrom(GetUserFromContext(r.Context())), input)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// Update merges the supplied fields into a module
func (h *ModuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var patch models.GameModulePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ErrInvalidJSON + ": " + err.Error()})
		return
	}
	m, err := h.moduleService.Update(r.Context(), callerFrom(GetUserFromContext(r.Context())), id, patch)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Delete removes a module
func (h *ModuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.moduleService.Delete(r.Context(), callerFrom(GetUserFromContext(r.Context())), id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
