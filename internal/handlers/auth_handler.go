package handlers

import (
	"net/http"

	"firesafety/internal/logger"
	"firesafety/internal/models"
	"firesafety/internal/security"
	"firesafety/internal/service"
)

// AuthHandler handles registration, login and the current user
type AuthHandler struct {
	authService        *service.AuthService
	achievementService *service.AchievementService
	csrf               *security.CSRFGenerator
	log                *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, achievementService *service.AchievementService, csrf *security.CSRFGenerator, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService:        authService,
		achievementService: achievementService,
		csrf:               csrf,
		log:                log,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	CSRFToken string       `json:"csrfToken"`
}

type userResponse struct {
	*models.User
	AchievementsCount int                   `json:"achievementsCount"`
	LevelProgress     service.LevelProgress `json:"levelProgress"`
}

// Register creates an account and starts a session for it
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ErrInvalidJSON})
		return
	}

	if _, err := h.authService.Register(r.Context(), service.RegisterInput{Username: req.Username, Password: req.Password}); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	h.startSession(w, r, req, http.StatusCreated)
}

// Login authenticates the user and starts a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ErrInvalidJSON})
		return
	}

	h.startSession(w, r, req, http.StatusOK)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, req credentialsRequest, status int) {
	session, user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	csrfToken, err := h.csrf.Token(user.ID, session.ID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, security.SessionCookieName, session.ID, session.ExpiresAt))
	writeJSON(w, status, loginResponse{User: user, Token: token, CSRFToken: csrfToken})
}

// Logout ends the cookie session, if any
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			writeServiceError(w, h.log, err)
			return
		}
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser returns the caller with achievement count and level progress
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	earned, err := h.achievementService.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		User:              user,
		AchievementsCount: len(earned),
		LevelProgress:     service.ProgressToNextLevel(user.XP),
	})
}

// CSRFToken returns a fresh token for the cookie session
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	user := GetUserFromContext(r.Context())
	if sessionID == "" || user == nil {
		writeJSON(w, http.StatusOK, map[string]string{"csrfToken": ""})
		return
	}
	token, err := h.csrf.Token(user.ID, sessionID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}
