package repository

import (
	"context"
	"errors"
	"time"

	"firesafety/internal/models"
)

// ErrConflict is returned when an optimistic update keeps losing to concurrent writers
var ErrConflict = errors.New("concurrent update conflict")

// ErrDuplicate is returned when a unique key already exists
var ErrDuplicate = errors.New("duplicate key")

// Users stores player accounts.
// Lookups return (nil, nil) when the user does not exist.
type Users interface {
	CreateUser(ctx context.Context, input models.NewUserInput) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	CountUsers(ctx context.Context) (int, error)
	// UpdateUserStats applies fn to the current user record and persists the
	// result as one atomic step. fn must not block.
	UpdateUserStats(ctx context.Context, id int64, fn func(u *models.User) error) (*models.User, error)
	// RecordAttempt appends r and applies fn to r's user as one unit. When fn
	// fails or the user does not exist nothing is written.
	RecordAttempt(ctx context.Context, r *models.ProgressRecord, fn func(u *models.User) error) (*models.ProgressRecord, *models.User, error)
	// GrantAchievements inserts the awards the user does not hold yet and
	// applies fn with the ids that were new, as one unit. fn is skipped and
	// the user is nil when nothing was new.
	GrantAchievements(ctx context.Context, userID int64, achievementIDs []int64, earnedAt time.Time, fn func(u *models.User, granted []int64) error) ([]int64, *models.User, error)
	RestoreUser(ctx context.Context, u *models.User) error
}

// Modules stores game content
type Modules interface {
	CreateModule(ctx context.Context, m *models.GameModule) (*models.GameModule, error)
	GetModuleByID(ctx context.Context, id int64) (*models.GameModule, error)
	GetAllModules(ctx context.Context) ([]models.GameModule, error)
	UpdateModule(ctx context.Context, id int64, fn func(m *models.GameModule) error) (*models.GameModule, error)
	DeleteModule(ctx context.Context, id int64) (bool, error)
	RestoreModule(ctx context.Context, m *models.GameModule) error
}

// Progress is the append-only log of game attempts
type Progress interface {
	AppendProgress(ctx context.Context, r *models.ProgressRecord) (*models.ProgressRecord, error)
	GetUserProgress(ctx context.Context, userID int64) ([]models.ProgressRecord, error)
	CountCompleted(ctx context.Context, userID int64) (int, error)
	RestoreProgress(ctx context.Context, r *models.ProgressRecord) error
}

// Achievements stores the catalog and the awards
type Achievements interface {
	CreateAchievement(ctx context.Context, a *models.Achievement) (*models.Achievement, error)
	GetAchievementByID(ctx context.Context, id int64) (*models.Achievement, error)
	GetAllAchievements(ctx context.Context) ([]models.Achievement, error)
	// AwardAchievement records the award and reports whether it was new
	AwardAchievement(ctx context.Context, userID, achievementID int64, earnedAt time.Time) (bool, error)
	GetUserAchievements(ctx context.Context, userID int64) ([]models.UserAchievement, error)
	RestoreAchievement(ctx context.Context, a *models.Achievement) error
}

// Sessions stores login sessions.
// Get returns (nil, nil) for unknown ids.
type Sessions interface {
	CreateSession(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.Session, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context) error
}

// Store bundles the repositories a deployment is wired with
type Store struct {
	Users        Users
	Modules      Modules
	Progress     Progress
	Achievements Achievements
	Sessions     Sessions
}
