package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"firesafety/internal/database"
	"firesafety/internal/models"
)

// maxUpdateAttempts bounds optimistic retries of user writes
const maxUpdateAttempts = 3

const userColumns = `id, username, password_hash, is_admin, is_moderator, score, xp, level, points, progress, version, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

var _ Users = (*UserRepository)(nil)

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user into the database
func (r *UserRepository) CreateUser(ctx context.Context, input models.NewUserInput) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		IsModerator:  input.IsModerator,
		Level:        1,
		Progress:     models.NewUserProgress(now),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	progress, err := json.Marshal(user.Progress)
	if err != nil {
		return nil, fmt.Errorf("failed to encode progress: %w", err)
	}

	err = r.db.WithTx(ctx, func(tx *database.Tx) error {
		if input.IsAdmin != nil {
			user.IsAdmin = *input.IsAdmin
		} else {
			// First user becomes admin
			var userCount int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
				return fmt.Errorf("failed to count users: %w", err)
			}
			user.IsAdmin = userCount == 0
		}

		query := `
			INSERT INTO users (username, password_hash, is_admin, is_moderator, score, xp, level, points, progress, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err := tx.ExecReturningID(ctx, query,
			user.Username, user.PasswordHash, user.IsAdmin, user.IsModerator,
			user.Score, user.XP, user.Level, user.Points, string(progress), user.Version,
			user.CreatedAt, user.UpdatedAt)
		if err != nil {
			if r.db.Dialect.IsUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		user.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, r.db, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetUserByUsername retrieves a user by case-insensitive username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, r.db, "SELECT "+userColumns+" FROM users WHERE LOWER(username) = LOWER(?)", username)
}

func (r *UserRepository) getUser(ctx context.Context, q database.DBTX, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetAllUsers retrieves all users ordered by id
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// CountUsers returns the number of registered users
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// errStaleVersion rolls back a transaction that lost the version race
var errStaleVersion = errors.New("stale user version")

// UpdateUserStats reads the user, applies fn and writes the result back guarded
// by the version column. A lost race is retried with a fresh read.
func (r *UserRepository) UpdateUserStats(ctx context.Context, id int64, fn func(u *models.User) error) (*models.User, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.GetUserByID(ctx, id)
		if err != nil || current == nil {
			return nil, err
		}
		next, err := writeUser(ctx, r.db, current, fn)
		if errors.Is(err, errStaleVersion) {
			continue
		}
		return next, err
	}
	return nil, ErrConflict
}

// RecordAttempt inserts the progress row and the user's new stats in one
// transaction, retrying the whole transaction when the version race is lost.
func (r *UserRepository) RecordAttempt(ctx context.Context, rec *models.ProgressRecord, fn func(u *models.User) error) (*models.ProgressRecord, *models.User, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var saved *models.ProgressRecord
		var user *models.User
		err := r.db.WithTx(ctx, func(tx *database.Tx) error {
			current, err := r.getUser(ctx, tx, "SELECT "+userColumns+" FROM users WHERE id = ?", rec.UserID)
			if err != nil || current == nil {
				return err
			}
			if user, err = writeUser(ctx, tx, current, fn); err != nil {
				return err
			}
			saved, err = appendProgress(ctx, tx, rec)
			return err
		})
		if errors.Is(err, errStaleVersion) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return saved, user, nil
	}
	return nil, nil, ErrConflict
}

// GrantAchievements inserts the missing award rows and credits the user in
// one transaction
func (r *UserRepository) GrantAchievements(ctx context.Context, userID int64, achievementIDs []int64, earnedAt time.Time, fn func(u *models.User, granted []int64) error) ([]int64, *models.User, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var granted []int64
		var user *models.User
		err := r.db.WithTx(ctx, func(tx *database.Tx) error {
			current, err := r.getUser(ctx, tx, "SELECT "+userColumns+" FROM users WHERE id = ?", userID)
			if err != nil || current == nil {
				return err
			}
			for _, id := range achievementIDs {
				created, err := insertAward(ctx, tx, userID, id, earnedAt)
				if err != nil {
					return err
				}
				if created {
					granted = append(granted, id)
				}
			}
			if len(granted) == 0 {
				return nil
			}
			user, err = writeUser(ctx, tx, current, func(u *models.User) error {
				return fn(u, granted)
			})
			return err
		})
		if errors.Is(err, errStaleVersion) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if len(granted) == 0 {
			return nil, nil, nil
		}
		return granted, user, nil
	}
	return nil, nil, ErrConflict
}

// writeUser applies fn to a copy of current and stores it if the row still
// carries current's version. It returns errStaleVersion otherwise.
func writeUser(ctx context.Context, q database.DBTX, current *models.User, fn func(u *models.User) error) (*models.User, error) {
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()

	progress, err := json.Marshal(next.Progress)
	if err != nil {
		return nil, fmt.Errorf("failed to encode progress: %w", err)
	}

	query := `
		UPDATE users
		SET is_admin = ?, is_moderator = ?, score = ?, xp = ?, level = ?, points = ?, progress = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := q.ExecContext(ctx, query,
		next.IsAdmin, next.IsModerator, next.Score, next.XP, next.Level, next.Points,
		string(progress), next.Version, next.UpdatedAt, current.ID, current.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if affected != 1 {
		return nil, errStaleVersion
	}
	return next, nil
}

// RestoreUser writes a user row with its original id
func (r *UserRepository) RestoreUser(ctx context.Context, u *models.User) error {
	progress, err := json.Marshal(u.Progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	version := u.Version
	if version == 0 {
		version = 1
	}

	query := `
		INSERT INTO users (id, username, password_hash, is_admin, is_moderator, score, xp, level, points, progress, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.IsAdmin, u.IsModerator,
		u.Score, u.XP, u.Level, u.Points, string(progress), version,
		u.CreatedAt, u.UpdatedAt); err != nil {
		return fmt.Errorf("failed to restore user %d: %w", u.ID, err)
	}
	return resetSequence(ctx, r.db, "users")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var progress string
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.IsModerator,
		&user.Score,
		&user.XP,
		&user.Level,
		&user.Points,
		&progress,
		&user.Version,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(progress), &user.Progress); err != nil {
		return nil, fmt.Errorf("failed to decode progress for user %d: %w", user.ID, err)
	}
	user.Progress = user.Progress.Clone()
	return user, nil
}

func resetSequence(ctx context.Context, db *database.DB, table string) error {
	query := db.Dialect.ResetSequenceQuery(table)
	if query == "" {
		return nil
	}
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to reset %s sequence: %w", table, err)
	}
	return nil
}
