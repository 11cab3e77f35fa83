package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firesafety/internal/logger"
	"firesafety/internal/models"
	"firesafety/internal/repository"
	"firesafety/internal/security"
	"firesafety/internal/validation"
)

// AuthService handles authentication business logic
type AuthService struct {
	users           repository.Users
	sessions        repository.Sessions
	tokens          *security.TokenIssuer
	sessionDuration time.Duration
	log             *logger.Logger
	now             func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.Users, sessions repository.Sessions, tokens *security.TokenIssuer, sessionDuration time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		users:           users,
		sessions:        sessions,
		tokens:          tokens,
		sessionDuration: sessionDuration,
		log:             log.With("service", "AuthService"),
		now:             time.Now,
	}
}

// RegisterInput holds the fields of a registration request
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new user account. The first account becomes admin.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	return s.createUser(ctx, username, input.Password, nil)
}

func (s *AuthService) createUser(ctx context.Context, username, password string, isAdmin *bool) (*models.User, error) {
	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, models.NewUserInput{
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", "user_id", user.ID, "admin", user.IsAdmin)
	return user, nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Session, *models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		s.log.Warn("failed login", "user_id", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	session, err := s.sessions.CreateSession(ctx, security.GenerateSessionID(), user.ID, now.Add(s.sessionDuration))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	updated, err := s.users.UpdateUserStats(ctx, user.ID, func(u *models.User) error {
		u.Progress.LastLoginDate = now.Format(time.RFC3339)
		return nil
	})
	if err != nil {
		// The session is valid either way
		s.log.Warn("failed to record login date", "user_id", user.ID, "error", err)
	} else if updated != nil {
		user = updated
	}

	return session, user, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.sessions.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}

	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the store
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) error {
	if err := s.sessions.DeleteExpiredSessions(ctx); err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return nil
}

// IssueToken signs a bearer token for API clients
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	token, err := s.tokens.Issue(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ValidateToken resolves a bearer token to its user. The admin flag is read
// from the store, not from the token.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, security.ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, security.ErrInvalidToken
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account, or promotes it when the
// username already exists. Reserved names are allowed here.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validation.ValidationError{Field: "username", Message: "username is required"}
	}

	existing, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		if existing.IsAdmin {
			return existing, nil
		}
		promoted, err := s.users.UpdateUserStats(ctx, existing.ID, func(u *models.User) error {
			u.IsAdmin = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to promote admin: %w", err)
		}
		s.log.Info("promoted bootstrap admin", "user_id", existing.ID)
		return promoted, nil
	}

	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	isAdmin := true
	return s.createUser(ctx, username, password, &isAdmin)
}
