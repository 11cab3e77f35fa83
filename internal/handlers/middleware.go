package handlers

import (
	"context"
	"net/http"
	"time"

	"firesafety/internal/logger"
	"firesafety/internal/models"
	"firesafety/internal/security"
	"firesafety/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	limiter     *security.RateLimiter
	clientIP    *security.ClientIPResolver
	log         *logger.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, limiter *security.RateLimiter, clientIP *security.ClientIPResolver, log *logger.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
		clientIP:    clientIP,
		log:         log,
	}
}

// RequireAuth accepts a bearer token or a session cookie
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := security.BearerToken(r); token != "" {
			user, err := m.authService.ValidateToken(r.Context(), token)
			if err != nil {
				writeServiceError(w, m.log, err)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
			return
		}

		cookie, err := r.Cookie(security.SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: ErrUnauthenticated})
			return
		}

		user, err := m.authService.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			// Clear invalid cookie
			http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
			writeServiceError(w, m.log, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, SessionContextKey, cookie.Value)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin requires an authenticated admin
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Message: ErrForbidden})
			return
		}
		next(w, r)
	})
}

// CSRFProtect checks the CSRF header on unsafe requests made with a
// session cookie. Bearer-token requests carry no ambient credentials and
// pass through. Must run inside RequireAuth.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}
		sessionID := GetSessionIDFromContext(r.Context())
		if sessionID == "" {
			next(w, r)
			return
		}
		user := GetUserFromContext(r.Context())
		if user == nil || !m.csrf.Verify(user.ID, sessionID, r.Header.Get(security.CSRFHeaderName)) {
			m.log.Warn("csrf validation failed", "path", r.URL.Path, "ip", m.clientIP.ClientIP(r))
			writeJSON(w, http.StatusForbidden, errorResponse{Message: ErrCSRFInvalid})
			return
		}
		next(w, r)
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(m.clientIP.ClientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Message: ErrTooManyRequests})
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging middleware logs HTTP requests at a level chosen by status class
func Logging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		fields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case rec.status >= 500:
			log.Error("request", fields...)
		case rec.status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetSessionIDFromContext returns the cookie session id, empty for bearer auth
func GetSessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(SessionContextKey).(string)
	return id
}

func callerFrom(user *models.User) service.Caller {
	return service.Caller{UserID: user.ID, IsAdmin: user.IsAdmin}
}
