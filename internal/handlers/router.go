package handlers

import (
	"net/http"

	"github.com/rs/cors"

	"firesafety/internal/logger"
)

// Router bundles the handlers and middleware served by the API
type Router struct {
	Middleware   *Middleware
	Auth         *AuthHandler
	Modules      *ModuleHandler
	Progress     *ProgressHandler
	Achievements *AchievementHandler
	Log          *logger.Logger
	// Startup backs /readyz; nil means always ready
	Startup *StartupStatus
	// AllowedOrigins are the browser origins allowed to send credentials
	AllowedOrigins []string
}

// Handler builds the routed, logged and CORS-wrapped HTTP handler
func (rt *Router) Handler() http.Handler {
	m := rt.Middleware
	auth := func(h http.HandlerFunc) http.HandlerFunc { return m.RequireAuth(m.CSRFProtect(h)) }
	admin := func(h http.HandlerFunc) http.HandlerFunc { return m.RequireAdmin(m.CSRFProtect(h)) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if rt.Startup != nil {
		mux.HandleFunc("GET /readyz", rt.Startup.ShowStartupStatus)
	}

	// Public routes
	mux.HandleFunc("POST /api/register", m.RateLimit(rt.Auth.Register))
	mux.HandleFunc("POST /api/login", m.RateLimit(rt.Auth.Login))
	mux.HandleFunc("POST /api/logout", rt.Auth.Logout)

	// Player routes
	mux.HandleFunc("GET /api/user", auth(rt.Auth.CurrentUser))
	mux.HandleFunc("GET /api/csrf-token", auth(rt.Auth.CSRFToken))
	mux.HandleFunc("GET /api/modules", auth(rt.Modules.List))
	mux.HandleFunc("GET /api/modules/{id}", auth(rt.Modules.Get))
	mux.HandleFunc("POST /api/progress", auth(rt.Progress.Submit))
	mux.HandleFunc("GET /api/progress", auth(rt.Progress.List))
	mux.HandleFunc("GET /api/achievements", auth(rt.Achievements.List))
	mux.HandleFunc("GET /api/user/achievements", auth(rt.Achievements.ListMine))

	// Admin routes
	for _, prefix := range []string{"/api/modules", "/api/admin/modules"} {
		mux.HandleFunc("POST "+prefix, admin(rt.Modules.Create))
		mux.HandleFunc("PUT "+prefix+"/{id}", admin(rt.Modules.Update))
		mux.HandleFunc("PATCH "+prefix+"/{id}", admin(rt.Modules.Update))
		mux.HandleFunc("DELETE "+prefix+"/{id}", admin(rt.Modules.Delete))
	}
	mux.HandleFunc("POST /api/admin/achievements", admin(rt.Achievements.Create))

	c := cors.New(cors.Options{
		AllowedOrigins:   rt.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-CSRF-Token"},
	})

	return Logging(rt.Log, c.Handler(mux))
}
